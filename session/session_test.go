package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"localchat/domain"
	"localchat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeCoordinator keeps one in-memory slice per recipient and can be told
// to fail polls.
type fakeCoordinator struct {
	mu        sync.Mutex
	queues    map[string][]domain.QueueItem
	failPolls int
	polls     int
	sendErr   error
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{queues: make(map[string][]domain.QueueItem)}
}

func (f *fakeCoordinator) Send(sender string, target domain.Target, content string, kind domain.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	recipient := target.String()
	f.queues[recipient] = append(f.queues[recipient], domain.QueueItem{
		ID: uuid.New(), Sender: sender, Recipient: recipient,
		Content: content, Kind: kind, EnqueuedAt: time.Now().UTC(),
	})
	return nil
}

func (f *fakeCoordinator) Poll(recipient string) ([]domain.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.polls <= f.failPolls {
		return nil, fmt.Errorf("%w: injected", errors.ErrStoreUnavailable)
	}
	items := f.queues[recipient]
	f.queues[recipient] = nil
	return items, nil
}

func (f *fakeCoordinator) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// collectSink records consumed items in order.
type collectSink struct {
	mu    sync.Mutex
	items []domain.QueueItem
}

func (c *collectSink) Consume(item domain.QueueItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *collectSink) snapshot() []domain.QueueItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.QueueItem(nil), c.items...)
}

func newTestSession(coordinator *fakeCoordinator, sink *collectSink) *Session {
	return New(slog.Default(), domain.Identity{Username: "bob"}, "token",
		coordinator, sink, nil, 10*time.Millisecond, 100)
}

func Test_Poll_Loop_Delivers_In_Order(t *testing.T) {
	req := require.New(t)
	coordinator := newFakeCoordinator()
	sink := &collectSink{}

	req.NoError(coordinator.Send("alice", domain.Target("bob"), "one", domain.Text))
	req.NoError(coordinator.Send("alice", domain.Target("bob"), "two", domain.Text))

	sess := newTestSession(coordinator, sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sess.Run(ctx) }()

	req.Eventually(func() bool {
		return len(sink.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	items := sink.snapshot()
	req.Equal("one", items[0].Content)
	req.Equal("two", items[1].Content)
}

func Test_Poll_Failure_Is_Retried_Next_Tick(t *testing.T) {
	req := require.New(t)
	coordinator := newFakeCoordinator()
	coordinator.failPolls = 3
	sink := &collectSink{}

	req.NoError(coordinator.Send("alice", domain.Target("bob"), "survives outage", domain.Text))

	sess := newTestSession(coordinator, sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sess.Run(ctx) }()

	// The loop keeps ticking through failures and delivers once the
	// store recovers.
	req.Eventually(func() bool {
		return len(sink.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	req.GreaterOrEqual(coordinator.pollCount(), 4)
}

func Test_Cancel_Stops_The_Loop(t *testing.T) {
	req := require.New(t)
	coordinator := newFakeCoordinator()
	sink := &collectSink{}

	sess := newTestSession(coordinator, sink)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan error, 1)
	go func() { stopped <- sess.Run(ctx) }()

	req.Eventually(func() bool { return coordinator.pollCount() > 0 },
		time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-stopped:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop after cancellation")
	}

	// No more polls once stopped.
	after := coordinator.pollCount()
	time.Sleep(50 * time.Millisecond)
	req.Equal(after, coordinator.pollCount())
}

func Test_Send_Failure_Is_Surfaced(t *testing.T) {
	req := require.New(t)
	coordinator := newFakeCoordinator()
	coordinator.sendErr = errors.ErrStoreUnavailable

	sess := newTestSession(coordinator, &collectSink{})
	err := sess.SendText(domain.Target("alice"), "will not be lost silently")
	req.ErrorIs(err, errors.ErrStoreUnavailable)
}

func Test_Oversized_Content_Is_Rejected(t *testing.T) {
	req := require.New(t)
	sess := newTestSession(newFakeCoordinator(), &collectSink{})

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	err := sess.SendText(domain.Target("alice"), string(long))
	req.ErrorIs(err, errors.ErrContentTooLong)
}
