package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"localchat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const userPrefix = "user:"

type IUserRepository interface {
	CreateUser(username, hashedPassword string) (string, error)
	GetUser(username string) (User, error)
	ListOthers(username string) ([]string, error)
}

// UserRepository is the directory of registered identities. It is
// read-only to the delivery path; only registration writes to it.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-layer representation of a registered identity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser persists a new identity. The password must already be hashed.
// It returns the newly generated user ID.
func (u UserRepository) CreateUser(username, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + username)
		if _, err = txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})

	return user.ID, err
}

// GetUser retrieves an identity by username.
func (u UserRepository) GetUser(username string) (User, error) {
	var user User

	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + username))
		if err != nil {
			return err // Mapped to ErrInvalidCredentials by the auth service
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})

	if err != nil {
		return User{}, err
	}

	return user, nil
}

// ListOthers returns every registered username except the caller's,
// in lexicographic order. "Active" means "registered": the directory has
// no presence tracking, so this is the broadcast fan-out set.
func (u UserRepository) ListOthers(username string) ([]string, error) {
	var others []string

	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false // Keys carry the usernames
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), userPrefix)
			if name == username {
				continue
			}
			others = append(others, name)
		}
		return nil
	})

	if err != nil {
		return nil, storeErr("list users", err)
	}

	return others, nil
}

// storeErr wraps a badger failure under the typed store error so callers
// can match on errors.ErrStoreUnavailable.
func storeErr(op string, err error) error {
	if stderrors.Is(err, errors.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", errors.ErrStoreUnavailable, op, err)
}
