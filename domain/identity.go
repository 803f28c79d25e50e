// Package domain contains core concepts of the chatroom.
// This file defines identities and addressing. No storage, network, or UI
// logic should be added here.
package domain

import "time"

// Identity is a registered user of the chatroom. The directory has no
// presence concept: being registered is the only notion of "active".
type Identity struct {
	ID        string
	Username  string
	Roles     []string
	CreatedAt time.Time
}

// Target identifies where a message is addressed: a concrete username,
// or Broadcast for every registered user except the sender.
type Target string

// Broadcast addresses all registered users other than the sender.
const Broadcast Target = "*"

func (t Target) IsBroadcast() bool { return t == Broadcast }

// IsValidName reports whether the target is syntactically a username:
// non-empty ASCII letters and digits, the same alphabet registration
// accepts. Anything else can never name a registered user and must not
// reach the store, where names become key segments.
func (t Target) IsValidName() bool {
	if len(t) == 0 {
		return false
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case 'a' <= c && c <= 'z':
		case 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

func (t Target) String() string { return string(t) }
