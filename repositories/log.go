package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
)

const (
	logPrefix = "log:"
	logSeqKey = "seq:log"
)

type ILogRepository interface {
	Append(sender string, recipient domain.Target, content string, kind domain.Kind) (domain.LogEntry, error)
	Scan(limit int) ([]domain.LogEntry, error)
	Close() error
}

// LogRepository is the append-only message log, the system of record.
// The delivery path only writes to it; Scan exists for audit tooling.
type LogRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewLogRepository(db *badger.DB, log *slog.Logger) (*LogRepository, error) {
	seq, err := db.GetSequence([]byte(logSeqKey), 64)
	if err != nil {
		return nil, storeErr("claim log sequence", err)
	}
	return &LogRepository{db: db, log: log, seq: seq}, nil
}

// NewLogReader opens the repository without claiming the id sequence,
// for read-only stores (the audit viewer). Append is unavailable.
func NewLogReader(db *badger.DB, log *slog.Logger) *LogRepository {
	return &LogRepository{db: db, log: log}
}

// diskEntry is the stored form of a log entry. The broadcast marker is
// kept as the literal target string, mirroring the NULL recipient of the
// reference schema.
type diskEntry struct {
	ID        uint64    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
}

// Append durably inserts one entry. The key is "log:{id}" with the id
// zero-padded to 19 digits so a prefix scan returns insertion order.
// IDs come from a badger sequence and are strictly increasing.
func (l *LogRepository) Append(sender string, recipient domain.Target, content string, kind domain.Kind) (domain.LogEntry, error) {
	if l.seq == nil {
		return domain.LogEntry{}, fmt.Errorf("log repository opened read-only")
	}

	id, err := l.seq.Next()
	if err != nil {
		return domain.LogEntry{}, storeErr("next log id", err)
	}

	entry := domain.LogEntry{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Kind:      kind,
		At:        time.Now().UTC(),
	}

	data, err := json.Marshal(fromLogEntry(entry))
	if err != nil {
		return domain.LogEntry{}, err
	}

	key := fmt.Sprintf("log:%019d", entry.ID)
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return domain.LogEntry{}, storeErr("append log entry", err)
	}

	return entry, nil
}

// Scan returns log entries in insertion order, up to limit (0 = all).
// Only audit tooling reads the log; delivery never does.
func (l *LogRepository) Scan(limit int) ([]domain.LogEntry, error) {
	var entries []domain.LogEntry

	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(logPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				l.log.Debug("Scan limit reached", "limit", limit)
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var de diskEntry
				if err := json.Unmarshal(val, &de); err != nil {
					return err
				}
				entries = append(entries, toLogEntry(de))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("scan log", err)
	}

	return entries, nil
}

// Close releases the id sequence so unused ids are returned to the store.
func (l *LogRepository) Close() error {
	if l.seq == nil {
		return nil
	}
	return l.seq.Release()
}

func fromLogEntry(entry domain.LogEntry) diskEntry {
	return diskEntry{
		ID:        entry.ID,
		Sender:    entry.Sender,
		Recipient: string(entry.Recipient),
		Content:   entry.Content,
		Kind:      string(entry.Kind),
		At:        entry.At,
	}
}

func toLogEntry(de diskEntry) domain.LogEntry {
	return domain.LogEntry{
		ID:        de.ID,
		Sender:    de.Sender,
		Recipient: domain.Target(de.Recipient),
		Content:   de.Content,
		Kind:      domain.Kind(de.Kind),
		At:        de.At,
	}
}
