package loan

import (
	"crypto/rand"
	"fmt"
)

const returnCodeLength = 8

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CodeGenerator produces return codes. Tests inject fixed values.
type CodeGenerator interface {
	NextCode() (string, error)
}

type randomCodeGenerator struct{}

func NewRandomCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

func (randomCodeGenerator) NextCode() (string, error) {
	buf := make([]byte, returnCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating return code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
