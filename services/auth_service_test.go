package services

import (
	"testing"
	"time"

	"localchat/auth"
	"localchat/errors"
	"localchat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) IAuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAuthService(repositories.NewUserRepository(db), time.Hour)
}

func Test_Register_Then_Login(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	identity, token, err := service.Register("alice", "ComplexPass123!")
	req.NoError(err)
	req.Equal("alice", identity.Username)
	req.NotEmpty(token)

	loggedIn, token, err := service.Login("alice", "ComplexPass123!")
	req.NoError(err)
	req.Equal(identity.ID, loggedIn.ID)

	claims, err := auth.ValidateToken(token.String())
	req.NoError(err)
	req.Equal("alice", claims.Username)
}

func Test_Register_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	_, _, err := service.Register("alice", "ComplexPass123!")
	req.NoError(err)

	_, _, err = service.Register("alice", "OtherComplex456!")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Register_Weak_Password(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	_, _, err := service.Register("alice", "weakpassword")
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func Test_Register_Bad_Username(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	_, _, err := service.Register("al ice", "ComplexPass123!")
	req.ErrorIs(err, errors.ErrInvalidUsername)
	req.NotErrorIs(err, errors.ErrInvalidPassword)
}

// Wrong password and unknown user both come back as the same error.
func Test_Login_Failures_Are_Indistinguishable(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	_, _, err := service.Register("alice", "ComplexPass123!")
	req.NoError(err)

	_, _, badPassword := service.Login("alice", "WrongPass123!")
	req.ErrorIs(badPassword, errors.ErrInvalidCredentials)

	_, _, unknownUser := service.Login("nobody", "ComplexPass123!")
	req.ErrorIs(unknownUser, errors.ErrInvalidCredentials)

	req.Equal(badPassword.Error(), unknownUser.Error())
}
