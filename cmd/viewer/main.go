package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"localchat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

// Config keeps the viewer's knobs separate from the client config.
type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Limit          int    `envconfig:"VIEWER_LIMIT" default:"50"`
	// User switches the viewer to that user's pending queue slice
	// instead of the permanent log.
	User string `envconfig:"VIEWER_USER"`
}

// The viewer is a read-only audit tool: it dumps the permanent message
// log (or one user's pending queue) without touching delivery state.
func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Read-only open; BypassLockGuard allows inspecting a store a client
	// currently holds.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	if config.User != "" {
		printQueue(db, config.User)
		return
	}
	printLog(db, config.Limit)
}

func printLog(db *badger.DB, limit int) {
	entries, err := repositories.NewLogReader(db, slog.Default()).Scan(limit)
	if err != nil {
		log.Fatalf("Failed to scan log: %v", err)
	}

	table := newTable([]string{"ID", "At", "Sender", "Recipient", "Kind", "Content"})
	for _, e := range entries {
		recipient := string(e.Recipient)
		if e.Recipient.IsBroadcast() {
			recipient = "ALL"
		}
		table.Append([]string{
			fmt.Sprintf("%d", e.ID),
			e.At.Format(time.RFC3339),
			e.Sender,
			recipient,
			string(e.Kind),
			e.Content,
		})
	}
	table.Render()
}

func printQueue(db *badger.DB, user string) {
	items, err := repositories.NewQueueReader(db, slog.Default()).Pending(user)
	if err != nil {
		log.Fatalf("Failed to read queue: %v", err)
	}

	table := newTable([]string{"Enqueued", "Seq", "Sender", "Kind", "Content"})
	for _, item := range items {
		table.Append([]string{
			item.EnqueuedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", item.Seq),
			item.Sender,
			string(item.Kind),
			item.Content,
		})
	}
	table.Render()
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}
