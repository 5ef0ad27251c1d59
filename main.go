package main

import (
	"log"

	"github.com/RamanArcStudios/CulturePassAU-sub003/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
