package services

import (
	"github.com/RamanArcStudios/CulturePassAU-sub003/utils"
)

// CodeGenerator produces scannable ticket codes. Implementations must not
// look at storage to find a free value; the store's unique index rejects the
// rare collision and issuance asks for a new code.
type CodeGenerator interface {
	Generate() (string, error)
}

type RandomCodeGenerator struct {
	Length int
}

func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{Length: utils.CodeLength}
}

func (g *RandomCodeGenerator) Generate() (string, error) {
	return utils.GenerateCode(g.Length), nil
}
