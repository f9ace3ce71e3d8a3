package lib

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShareCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateShareCode()
		require.NoError(t, err)
		assert.Len(t, code, ShareCodeLength)
		assert.True(t, IsValidShareCode(code), code)
		assert.False(t, strings.ContainsAny(code, "0O1Il"), code)
		seen[code] = true
	}
	// 56^6 codes; 200 draws colliding would mean a broken generator
	assert.Greater(t, len(seen), 195)
}

func TestIsValidShareCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"AbC234", true},
		{"AbC23", false},
		{"AbC2345", false},
		{"AbC230", false},
		{"AbCl34", false},
		{"Ab-234", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidShareCode(tt.code), tt.code)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
