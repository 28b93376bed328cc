package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way an access token can fail to parse.
var ErrInvalidToken = errors.New("invalid token")

const refreshBytes = 48

var hs256 = jwt.SigningMethodHS256

type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is handed to the client once; the store keeps only
// HashRefreshRaw(Raw).
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims carry the user ID in sub and the role name used by the
// role guards.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// NewAccessToken signs an HS256 token for userID valid for ttlMin minutes.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	iat := time.Now().UTC()
	exp := iat.Add(time.Duration(ttlMin) * time.Minute)
	signed, err := jwt.NewWithClaims(hs256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken accepts only unexpired HS256 tokens with a numeric
// subject and a role.
func ParseAccessToken(secret, raw string) (Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{hs256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || c.Role == "" {
		return Claims{}, ErrInvalidToken
	}
	if _, err := c.UserID(); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}

// NewRefreshToken draws a random opaque token valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	buf := make([]byte, refreshBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: hex.EncodeToString(buf),
		Exp: time.Now().UTC().AddDate(0, 0, ttlDays),
	}, nil
}

func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
