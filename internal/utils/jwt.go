package utils // package utils provides helpers for issuing access tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessToken represents a signed JWT access token along with its expiry.
// Token is the serialized JWT; Exp is the UTC expiration time.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// DefaultTokenTTL is used when NewAccessToken is given a non-positive ttl.
const DefaultTokenTTL = 15 * time.Minute

// NewAccessToken builds and signs an HS256 JWT for a user.  The subject must
// be a UUID because JWTAuth rejects anything else.  The token carries sub,
// role, exp and iat.
func NewAccessToken(secret, userID, role string, ttl time.Duration) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("jwt secret is empty")
	}
	if err := uuid.Validate(userID); err != nil {
		return AccessToken{}, err
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
