package utils

import (
	"github.com/pocketbase/pocketbase/tools/security"
)

const (
	// CodeAlphabet drops 0/O and 1/I so codes survive being read aloud at a gate.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// 26 symbols of a 32 letter alphabet carry 130 bits.
	CodeLength = 26

	recordIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	recordIDLength   = 15
)

// GenerateCode returns a crypto/rand backed code of n symbols from CodeAlphabet.
func GenerateCode(n int) string {
	return security.RandomStringWithAlphabet(n, CodeAlphabet)
}

// NewRecordID returns an id in the PocketBase record id format.
func NewRecordID() string {
	return security.RandomStringWithAlphabet(recordIDLength, recordIDAlphabet)
}
