package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		token, _ := GenerateToken()
		for _, c := range token {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		hash := HashToken("test-token")
		assert.Len(t, hash, 64)
	})

	t.Run("same input produces same hash", func(t *testing.T) {
		hash1 := HashToken("test-token")
		hash2 := HashToken("test-token")
		assert.Equal(t, hash1, hash2)
	})

	t.Run("different input produces different hash", func(t *testing.T) {
		hash1 := HashToken("token-1")
		hash2 := HashToken("token-2")
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
	assert.True(t, ConstantTimeEqual("", ""))
}

func TestPasswordHashing(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := HashPassword("hunter22")
		require.NoError(t, err)
		assert.True(t, CheckPasswordHash("hunter22", hash))
		assert.False(t, CheckPasswordHash("hunter23", hash))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		hash1, _ := HashPassword("hunter22")
		hash2, _ := HashPassword("hunter22")
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestGenerateBackupCode(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			code, err := GenerateBackupCode()
			require.NoError(t, err)
			assert.Len(t, code, 9)
			assert.Equal(t, byte('-'), code[4])

			for j, ch := range code {
				if j == 4 {
					continue
				}
				// Ambiguous glyphs (0, 1, I, L, O, U) are excluded.
				assert.Contains(t, "ABCDEFGHJKMNPQRSTVWXYZ23456789", string(ch))
			}
		}
	})

	t.Run("characters are uniformly distributed", func(t *testing.T) {
		const alphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
		const samples = 30000

		counts := make(map[rune]int, len(alphabet))
		for i := 0; i < samples; i++ {
			code, err := GenerateBackupCode()
			require.NoError(t, err)
			for j, ch := range code {
				if j == 4 {
					continue
				}
				counts[ch]++
			}
		}

		// Chi-squared against a uniform expectation; naive byte-mod
		// sampling would skew the first 16 characters far past this bound.
		expected := float64(samples*8) / float64(len(alphabet))
		var stat float64
		for _, ch := range alphabet {
			diff := float64(counts[ch]) - expected
			stat += diff * diff / expected
		}
		assert.Less(t, stat, 60.0)
	})
}

func TestNormalizeBackupCode(t *testing.T) {
	assert.Equal(t, "ABCD-2345", NormalizeBackupCode("abcd-2345"))
	assert.Equal(t, "ABCD-2345", NormalizeBackupCode("abcd2345"))
	assert.Equal(t, "ABCD-2345", NormalizeBackupCode("  ABCD 2345  "))
	assert.Equal(t, "TOOLONGCODE", NormalizeBackupCode("toolongcode"))
}

func TestMaskCode(t *testing.T) {
	assert.Equal(t, "ABCD-****", MaskCode("ABCD-2345"))
	assert.Equal(t, "****", MaskCode("AB"))
}
