package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/signingkey"
	"github.com/vibevault/userservice/pkg/iam/user"
	"github.com/vibevault/userservice/pkg/kernel"
)

// TokenIssuer mints signed bearer tokens. The key id is written both as the
// kid header and the jti claim, coupling token identity to its signing-key
// generation.
type TokenIssuer struct {
	issuer   string
	audience string
	ttl      time.Duration
	alg      signingkey.Algorithm
	now      func() time.Time
}

func NewTokenIssuer(issuer, audience string, ttl time.Duration, alg signingkey.Algorithm) *TokenIssuer {
	return &TokenIssuer{
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
		alg:      alg,
	}
}

// SetClock overrides the time source.
func (ti *TokenIssuer) SetClock(now func() time.Time) { ti.now = now }

// TTL returns the token lifetime, shared with session expiry.
func (ti *TokenIssuer) TTL() time.Duration { return ti.ttl }

// Issue signs a token for the user with the given role snapshot and key.
func (ti *TokenIssuer) Issue(u *user.User, roleNames []string, material []byte, kid kernel.KeyID) (string, error) {
	now := ti.now()

	claims := Claims{
		Email: u.Email,
		Roles: roleNames,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Audience:  jwt.ClaimStrings{ti.audience},
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			ID:        kid.String(),
		},
	}

	token := jwt.NewWithClaims(ti.alg.Method, claims)
	token.Header["kid"] = kid.String()

	signed, err := token.SignedString(material)
	if err != nil {
		return "", errx.Wrap(err, "failed to sign token", errx.TypeInternal)
	}
	return signed, nil
}
