// Package delivery implements the send/poll protocol: fan-out at send
// time into per-recipient queue slices, consume-on-poll.
package delivery

import (
	"fmt"
	"log/slog"
	"time"

	"localchat/domain"
	"localchat/errors"
	"localchat/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ICoordinator interface {
	Send(sender string, target domain.Target, content string, kind domain.Kind) error
	Poll(recipient string) ([]domain.QueueItem, error)
}

// Coordinator owns the delivery protocol. All of its state lives in the
// shared store; any number of coordinators may run concurrently against
// the same store, one per session or one shared, with the same semantics.
type Coordinator struct {
	log     *slog.Logger
	users   repositories.IUserRepository
	logbook repositories.ILogRepository
	queue   repositories.IQueueRepository
}

func NewCoordinator(
	log *slog.Logger,
	users repositories.IUserRepository,
	logbook repositories.ILogRepository,
	queue repositories.IQueueRepository,
) *Coordinator {
	return &Coordinator{log: log, users: users, logbook: logbook, queue: queue}
}

// Send appends the message to the permanent log, then stages one queue
// item per intended recipient. The log write comes first: a failed log
// append creates no queue items, and the fan-out itself is all-or-nothing.
//
// A broadcast fans out to every user registered at this moment except the
// sender; users who register later never receive it. Zero recipients is a
// valid silent no-op. The sender never receives their own message through
// the queue — local echo is the caller's job.
func (c *Coordinator) Send(sender string, target domain.Target, content string, kind domain.Kind) error {
	if target == "" {
		return errors.ErrNoRecipient
	}
	// Concrete targets must be syntactically valid usernames: recipient
	// names become queue key segments, so a name containing the key
	// separator would alias another user's slice.
	if !target.IsBroadcast() && !target.IsValidName() {
		return fmt.Errorf("%w: %q", errors.ErrInvalidTarget, target)
	}

	entry, err := c.logbook.Append(sender, target, content, kind)
	if err != nil {
		return err
	}

	var recipients []string
	if target.IsBroadcast() {
		recipients, err = c.users.ListOthers(sender)
		if err != nil {
			return err
		}
	} else {
		recipients = []string{target.String()}
	}

	if len(recipients) == 0 {
		c.log.Debug("Broadcast with no recipients", "sender", sender, "log_id", entry.ID)
		return nil
	}

	enqueuedAt := time.Now().UTC()
	items := lo.Map(recipients, func(recipient string, _ int) domain.QueueItem {
		return domain.QueueItem{
			ID:         uuid.New(),
			Sender:     sender,
			Recipient:  recipient,
			Content:    content,
			Kind:       kind,
			EnqueuedAt: enqueuedAt,
		}
	})

	if err := c.queue.EnqueueAll(items); err != nil {
		return err
	}

	c.log.Debug("Message staged", "log_id", entry.ID, "sender", sender, "recipients", len(items))
	return nil
}

// Poll hands the recipient every item currently staged for them, oldest
// first, removing each as part of the same store transaction. An item is
// handed to exactly one poll in its lifetime; a crash between this call
// and rendering loses the items it returned (at-least-once, not
// exactly-once).
func (c *Coordinator) Poll(recipient string) ([]domain.QueueItem, error) {
	return c.queue.Drain(recipient)
}
