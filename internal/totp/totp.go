// Package totp implements the time-based one-time code engine used for
// administrator second-factor enrollment and verification. It is stateless
// and pure with respect to time: callers pass the reference instant.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const secretBytes = 20

type Engine struct {
	issuer string
	digits int
	period int
	skew   int
}

// NewEngine builds an engine with RFC 6238 defaults: 6 digits, 30 second
// period, one step of drift tolerance in each direction.
func NewEngine(issuer string) *Engine {
	return &Engine{
		issuer: issuer,
		digits: 6,
		period: 30,
		skew:   1,
	}
}

// GenerateSecret returns a fresh random secret, base32-encoded without
// padding — the form authenticator apps accept as a manual key.
func (e *Engine) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// URI embedding issuer, account and secret.
func (e *Engine) ProvisionURI(secret, account string) string {
	label := url.PathEscape(e.issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", e.issuer)
	v.Set("period", strconv.Itoa(e.period))
	v.Set("digits", strconv.Itoa(e.digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// QRCodeDataURL renders the provisioning URI as a PNG data URL suitable for
// direct embedding in an <img> tag.
func (e *Engine) QRCodeDataURL(provisionURI string) (string, error) {
	png, err := qrcode.Encode(provisionURI, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// VerifyCode reports whether code matches secret at any step within the
// drift window around now. Comparison is constant-time per candidate.
func (e *Engine) VerifyCode(secret, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != e.digits || !isNumeric(trimmed) {
		return false, nil
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}

	baseCounter := now.Unix() / int64(e.period)
	for step := -e.skew; step <= e.skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated := hotpCode(key, counter, e.digits)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.TrimSpace(secret))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	key, err := enc.DecodeString(strings.TrimRight(normalized, "="))
	if err != nil {
		return nil, errors.New("malformed totp secret")
	}
	if len(key) == 0 {
		return nil, errors.New("empty totp secret")
	}
	return key, nil
}

func hotpCode(key []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
