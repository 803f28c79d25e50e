package auth

import (
	"strings"
	"testing"
	"time"

	"localchat/errors"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MySuperSecretPass123!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword1!", hash)
	req.NoError(err)
	req.False(match)
}

func TestCompareRejectsMalformedHash(t *testing.T) {
	req := require.New(t)
	_, err := ComparePassword("whatever", "not-a-hash")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "ComplexPass123!"}, false},
		{"Username too short", RegisterRequest{"al", "ComplexPass123!"}, true},
		{"Username not alphanumeric", RegisterRequest{"al ice", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"alice", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"alice", "NoDigitPassword!"}, true},
		{"Missing special char", RegisterRequest{"alice", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"alice", "nouppercase123!"}, true},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

// Username and password failures carry distinct sentinels so callers can
// report the right field.
func TestValidationErrorSentinels(t *testing.T) {
	req := require.New(t)

	err := ValidateRegister(RegisterRequest{"al ice", "ComplexPass123!"})
	req.ErrorIs(err, errors.ErrInvalidUsername)
	req.NotErrorIs(err, errors.ErrInvalidPassword)

	err = ValidateRegister(RegisterRequest{"alice", "Short1!"})
	req.ErrorIs(err, errors.ErrInvalidPassword)
	req.NotErrorIs(err, errors.ErrInvalidUsername)
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", []string{"user"}, time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.Username)
	req.Equal([]string{"user"}, claims.Roles)
	req.Equal("localchat", claims.Issuer)
}

func TestTokenExpired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", []string{"user"}, -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}
