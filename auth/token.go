package auth

import (
	"fmt"
	"pairchat/domain"
	"pairchat/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier signs and verifies HS256 tokens for one issuer.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// GenerateToken creates a signed JWT for a specific user.
func (v *Verifier) GenerateToken(userID domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates the signature, the issuer and the expiration of a JWT string.
func (v *Verifier) Verify(tokenString string) (domain.Credential, error) {
	if tokenString == "" {
		return domain.Credential{}, fmt.Errorf("%w: missing token", errors.ErrAuthentication)
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.Credential{}, errors.ErrTokenExpired
	case err != nil:
		return domain.Credential{}, fmt.Errorf("%w: %w", errors.ErrAuthentication, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Credential{}, fmt.Errorf("%w: invalid claims", errors.ErrAuthentication)
	}
	return domain.Credential{
		UserID:    domain.UserID(claims.UserID),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
