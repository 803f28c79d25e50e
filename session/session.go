// Package session drives the delivery protocol for one logged-in user.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"localchat/delivery"
	"localchat/domain"
	"localchat/errors"
	"localchat/observability"
)

// EventSink receives queue items in delivery order as the poll loop takes
// them off the queue. Consumption and rendering are not atomic: an item
// handed to the sink has already been removed from the store.
type EventSink interface {
	Consume(item domain.QueueItem)
}

// Session is one logged-in client. It holds the user's identity and
// token, issues sends, and runs the single poll loop for that user.
// Sessions share no mutable state with each other; all coordination goes
// through the store.
type Session struct {
	log              *slog.Logger
	self             domain.Identity
	token            string
	coordinator      delivery.ICoordinator
	sink             EventSink
	monitor          *observability.MonitoringManager
	pollInterval     time.Duration
	maxContentLength int
}

func New(
	log *slog.Logger,
	self domain.Identity,
	token string,
	coordinator delivery.ICoordinator,
	sink EventSink,
	monitor *observability.MonitoringManager,
	pollInterval time.Duration,
	maxContentLength int,
) *Session {
	return &Session{
		log:              log,
		self:             self,
		token:            token,
		coordinator:      coordinator,
		sink:             sink,
		monitor:          monitor,
		pollInterval:     pollInterval,
		maxContentLength: maxContentLength,
	}
}

func (s *Session) Identity() domain.Identity { return s.self }

func (s *Session) Token() string { return s.token }

// SendText sends a text message. The call blocks until the log and queue
// writes are durable; a failure here means the message was not sent and
// must be surfaced to the user.
func (s *Session) SendText(target domain.Target, text string) error {
	if s.maxContentLength > 0 && len(text) > s.maxContentLength {
		return fmt.Errorf("%w: %d > %d bytes", errors.ErrContentTooLong, len(text), s.maxContentLength)
	}
	if err := s.coordinator.Send(s.self.Username, target, text, domain.Text); err != nil {
		return err
	}
	if s.monitor != nil {
		s.monitor.IncrMessagesSent()
	}
	return nil
}

// SendFile sends an attachment reference. The bytes themselves are stored
// by the transfer collaborator; only the stored path travels through the
// queue, and its base name is the filename shown to the recipient.
func (s *Session) SendFile(target domain.Target, storedPath string) error {
	if err := s.coordinator.Send(s.self.Username, target, storedPath, domain.File); err != nil {
		return err
	}
	if s.monitor != nil {
		s.monitor.IncrMessagesSent()
	}
	return nil
}

// Run is the session's only poll path. It polls the user's queue slice on
// a fixed interval and hands each item to the sink in order. A poll
// failure is logged and retried on the next scheduled tick; it never
// stops the loop. Cancelling the context stops the loop at the next
// wake-up, leaving undelivered items staged for a later session.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("Starting poll loop", "user", s.self.Username, "interval", s.pollInterval)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopping poll loop", "user", s.self.Username)
			return ctx.Err()
		case <-ticker.C:
			items, err := s.coordinator.Poll(s.self.Username)
			if err != nil {
				s.log.Error("Poll failed", "user", s.self.Username, "error", err)
				if s.monitor != nil {
					s.monitor.IncrPollErrors()
				}
				continue
			}

			if len(items) == 0 {
				if s.monitor != nil {
					s.monitor.IncrEmptyPolls()
				}
				continue
			}

			for _, item := range items {
				s.sink.Consume(item)
				if s.monitor != nil {
					s.monitor.IncrItemsDelivered()
				}
			}
		}
	}
}
