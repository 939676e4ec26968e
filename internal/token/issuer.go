// Package token signs and verifies the access/refresh token pair. Access and
// refresh tokens carry the same claim set but are signed with independent
// secrets and lifetimes, so neither can stand in for the other.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed claim set shared by both tokens.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Pair is one issuance result: the access token, its sibling refresh token
// and the access lifetime echoed to clients.
type Pair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &Issuer{cfg: cfg}, nil
}

// Subject identifies the principal a pair is minted for.
type Subject struct {
	ID       string
	Email    string
	Username string
	Role     string
}

// IssuePair mints an access/refresh pair from one claim set.
func (i *Issuer) IssuePair(sub Subject) (*Pair, error) {
	now := time.Now()

	access, err := i.sign(sub, now, i.cfg.AccessTTL, i.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := i.sign(sub, now, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    FormatTTL(i.cfg.AccessTTL),
	}, nil
}

func (i *Issuer) sign(sub Subject, now time.Time, ttl time.Duration, secret string) (string, error) {
	claims := &Claims{
		Email:    sub.Email,
		Username: sub.Username,
		Role:     sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyAccess validates an access token's signature and expiry.
func (i *Issuer) VerifyAccess(tokenString string) (*Claims, error) {
	return i.verify(tokenString, i.cfg.AccessSecret)
}

// VerifyRefresh validates a refresh token's signature and expiry.
func (i *Issuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return i.verify(tokenString, i.cfg.RefreshSecret)
}

func (i *Issuer) verify(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FormatTTL renders a duration the way clients expect it: "1h", "30m", "45s".
func FormatTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d >= time.Minute && d%time.Minute == 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m"
	default:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
}
