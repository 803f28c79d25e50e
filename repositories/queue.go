package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const queueSeqKey = "seq:queue"

// drainRetries bounds the number of times a drain is re-run after a
// transaction conflict with a concurrent enqueue.
const drainRetries = 5

type IQueueRepository interface {
	EnqueueAll(items []domain.QueueItem) error
	Drain(recipient string) ([]domain.QueueItem, error)
	Pending(recipient string) ([]domain.QueueItem, error)
	Close() error
}

// QueueRepository is the delivery staging area: one row per pending
// delivery to one concrete recipient.
//
// The key is formatted as "queue:{recipient}:{timestamp_padded}:{seq_padded}" to:
//  1. Keep each recipient's slice under its own disjoint prefix.
//  2. Ensure chronological ordering using 19-digit zero padding
//     (lexicographical order).
//  3. Break same-nanosecond ties by insertion order via a monotonic
//     sequence number, so one fan-out drains in send order.
type QueueRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewQueueRepository(db *badger.DB, log *slog.Logger) (*QueueRepository, error) {
	seq, err := db.GetSequence([]byte(queueSeqKey), 128)
	if err != nil {
		return nil, storeErr("claim queue sequence", err)
	}
	return &QueueRepository{db: db, log: log, seq: seq}, nil
}

// NewQueueReader opens the repository without claiming the sequence, for
// read-only stores. Only Pending is usable.
func NewQueueReader(db *badger.DB, log *slog.Logger) *QueueRepository {
	return &QueueRepository{db: db, log: log}
}

type diskItem struct {
	ID         uuid.UUID `json:"id"`
	Seq        uint64    `json:"seq"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func itemKey(item domain.QueueItem) []byte {
	return []byte(fmt.Sprintf("queue:%s:%019d:%019d",
		item.Recipient,
		item.EnqueuedAt.UnixNano(),
		item.Seq,
	))
}

func recipientPrefix(recipient string) []byte {
	return []byte("queue:" + recipient + ":")
}

// EnqueueAll inserts one fan-out as a single transaction: either every
// item of the batch becomes visible or none does. An empty batch is a
// valid no-op, not an error.
func (q *QueueRepository) EnqueueAll(items []domain.QueueItem) error {
	if len(items) == 0 {
		return nil
	}
	if q.seq == nil {
		return fmt.Errorf("queue repository opened read-only")
	}

	// Sequence numbers are assigned up front; Next is independent of the
	// write transaction below.
	for i := range items {
		seq, err := q.seq.Next()
		if err != nil {
			return storeErr("next queue seq", err)
		}
		items[i].Seq = seq
	}

	err := q.db.Update(func(txn *badger.Txn) error {
		for _, item := range items {
			data, err := json.Marshal(fromQueueItem(item))
			if err != nil {
				return err
			}
			if err := txn.Set(itemKey(item), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("enqueue batch", err)
	}

	return nil
}

// Drain returns every pending item for the recipient in enqueue order and
// removes them in the same transaction. The read and the delete form one
// atomic unit: an enqueue racing with a drain is visible either entirely
// before or entirely after the drain's snapshot. An empty result is the
// steady-state case and costs one prefix seek.
func (q *QueueRepository) Drain(recipient string) ([]domain.QueueItem, error) {
	for attempt := 0; ; attempt++ {
		items, err := q.drainOnce(recipient)
		if err == nil {
			return items, nil
		}
		if stderrors.Is(err, badger.ErrConflict) && attempt < drainRetries {
			q.log.Debug("Drain conflicted with a concurrent write, retrying",
				"recipient", recipient, "attempt", attempt+1)
			continue
		}
		return nil, storeErr("drain queue", err)
	}
}

func (q *QueueRepository) drainOnce(recipient string) ([]domain.QueueItem, error) {
	var items []domain.QueueItem

	err := q.db.Update(func(txn *badger.Txn) error {
		items = items[:0]
		prefix := recipientPrefix(recipient)

		// Collect first, delete after the iterator is closed.
		var keys [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			keys = append(keys, item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				var di diskItem
				if err := json.Unmarshal(val, &di); err != nil {
					return err
				}
				items = append(items, toQueueItem(di))
				return nil
			})
			if err != nil {
				it.Close()
				return err
			}
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Pending returns the recipient's slice in enqueue order without
// consuming it. Used by audit tooling and tests, never by the poll path.
func (q *QueueRepository) Pending(recipient string) ([]domain.QueueItem, error) {
	var items []domain.QueueItem

	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := recipientPrefix(recipient)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var di diskItem
				if err := json.Unmarshal(val, &di); err != nil {
					return err
				}
				items = append(items, toQueueItem(di))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("read pending queue", err)
	}

	return items, nil
}

// Close releases the sequence.
func (q *QueueRepository) Close() error {
	if q.seq == nil {
		return nil
	}
	return q.seq.Release()
}

func fromQueueItem(item domain.QueueItem) diskItem {
	return diskItem{
		ID:         item.ID,
		Seq:        item.Seq,
		Sender:     item.Sender,
		Recipient:  item.Recipient,
		Content:    item.Content,
		Kind:       string(item.Kind),
		EnqueuedAt: item.EnqueuedAt,
	}
}

func toQueueItem(di diskItem) domain.QueueItem {
	return domain.QueueItem{
		ID:         di.ID,
		Seq:        di.Seq,
		Sender:     di.Sender,
		Recipient:  di.Recipient,
		Content:    di.Content,
		Kind:       domain.Kind(di.Kind),
		EnqueuedAt: di.EnqueuedAt,
	}
}
