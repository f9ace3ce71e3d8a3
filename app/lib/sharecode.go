package lib

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ShareCodeAlphabet leaves out look-alike characters (0, O, 1, I, l, o).
const ShareCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

const ShareCodeLength = 6

func GenerateShareCode() (string, error) {
	code := make([]byte, ShareCodeLength)
	max := big.NewInt(int64(len(ShareCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("GenerateShareCode: %w", err)
		}
		code[i] = ShareCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func IsValidShareCode(code string) bool {
	if len(code) != ShareCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !containsByte(ShareCodeAlphabet, code[i]) {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
