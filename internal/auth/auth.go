// Package auth verifies socket and REST tokens against the accounts
// directory. Identity administration is external; this package only
// resolves a token into a user.
package auth

import (
	"context"
	"fmt"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier resolves a bearer token into a user identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.User, error)
}

// UserFinder looks up directory entries for verified token claims.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
}

// JWTVerifier verifies HS256 tokens carrying a user_id claim.
type JWTVerifier struct {
	secret []byte
	users  UserFinder
}

// NewJWTVerifier creates a verifier with the shared signing secret.
func NewJWTVerifier(secret string, users UserFinder) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), users: users}
}

type claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token, then loads the user it names.
// Any parse, signature or lookup failure surfaces as ErrTokenInvalid.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, errs.ErrTokenInvalid
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.ErrTokenInvalid
	}
	user, err := v.users.FindUserByID(ctx, c.UserID)
	if err != nil {
		return nil, errs.ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, errs.ErrTokenInvalid
	}
	return user, nil
}
