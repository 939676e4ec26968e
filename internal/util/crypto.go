package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// GenerateToken returns 32 cryptographically random bytes, hex-encoded.
// Used for pending session handles and password reset tokens.
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateBackupCode returns a one-time recovery code in XXXX-XXXX form,
// drawn from an unambiguous uppercase alphabet. Bytes outside the largest
// multiple of the alphabet size are rejected so every character is
// equally likely.
func GenerateBackupCode() (string, error) {
	const alphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
	const limit = byte(256 - 256%len(alphabet))

	var b strings.Builder
	buf := make([]byte, 16)
	written := 0
	for written < 8 {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, r := range buf {
			if r >= limit {
				continue
			}
			if written == 4 {
				b.WriteByte('-')
			}
			b.WriteByte(alphabet[int(r)%len(alphabet)])
			written++
			if written == 8 {
				break
			}
		}
	}
	return b.String(), nil
}

// NormalizeBackupCode strips separators and whitespace and uppercases,
// so user-typed codes compare against the minted form.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, " ", "")
	code = strings.ReplaceAll(code, "-", "")
	if len(code) == 8 {
		return code[:4] + "-" + code[4:]
	}
	return code
}

func MaskCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return code[:4] + "-****"
}
