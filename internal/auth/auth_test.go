package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

type fakeUserFinder struct {
	users map[uint]*model.User
}

func (f *fakeUserFinder) FindUserByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errs.ErrUserNotFound
}

func signToken(t *testing.T, secret string, userID uint) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestVerifyValidToken(t *testing.T) {
	finder := &fakeUserFinder{users: map[uint]*model.User{
		7: {ID: 7, Username: "alice", Name: "Alice", Role: model.RoleStudent, IsActive: true},
	}}
	v := NewJWTVerifier("secret", finder)

	user, err := v.Verify(context.Background(), signToken(t, "secret", 7))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("got user %q", user.Username)
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	finder := &fakeUserFinder{users: map[uint]*model.User{
		7: {ID: 7, IsActive: true},
	}}
	v := NewJWTVerifier("secret", finder)

	_, err := v.Verify(context.Background(), signToken(t, "wrong-secret", 7))
	if !errors.Is(err, errs.ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsEmptyUnknownInactive(t *testing.T) {
	finder := &fakeUserFinder{users: map[uint]*model.User{
		8: {ID: 8, IsActive: false},
	}}
	v := NewJWTVerifier("secret", finder)

	cases := map[string]string{
		"empty token":   "",
		"unknown user":  signToken(t, "secret", 99),
		"inactive user": signToken(t, "secret", 8),
	}
	for name, token := range cases {
		if _, err := v.Verify(context.Background(), token); !errors.Is(err, errs.ErrTokenInvalid) {
			t.Errorf("%s: got %v, want ErrTokenInvalid", name, err)
		}
	}
}
