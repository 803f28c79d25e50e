package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"localchat/delivery"
	"localchat/domain"
	"localchat/internal"
	"localchat/observability"
	"localchat/repositories"
	"localchat/runtime"
	"localchat/services"
	"localchat/session"
	"localchat/transfer"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

// Credentials are read separately from the shared config; every client
// process logs in as exactly one user.
type Credentials struct {
	Username string `env:"CHAT_USERNAME,required=true"`
	Password string `env:"CHAT_PASSWORD,required=true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the client lifecycle, and
// centralizes error reporting so deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	var creds Credentials
	if _, err := env.UnmarshalFromEnviron(&creds); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.Logger(config.LogLevel)

	// 2. Shared store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing store...")
		_ = db.Close()
	}()

	// 3. Repositories & delivery protocol
	userRepository := repositories.NewUserRepository(db)
	logRepository, err := repositories.NewLogRepository(db, log)
	if err != nil {
		return err
	}
	defer logRepository.Close()
	queueRepository, err := repositories.NewQueueRepository(db, log)
	if err != nil {
		return err
	}
	defer queueRepository.Close()

	coordinator := delivery.NewCoordinator(log, userRepository, logRepository, queueRepository)

	// 4. Login
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	identity, token, err := authService.Login(creds.Username, creds.Password)
	if err != nil {
		return err
	}
	log.Info("Logged in", "user", identity.Username)

	// 5. Session, rendering and telemetry
	files := transfer.NewStore(config.FilesDir, log)
	monitor := observability.NewMonitoringManager(log, config.MetricInterval)
	sess := session.New(log, identity, token.String(), coordinator, &renderSink{},
		monitor, config.PollInterval, config.MaxContentLength)

	// 6. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background workers under supervision
	sup := runtime.NewSupervisor(log, config.RestartInterval).Add(sess, monitor)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 8. Input loop (returns on EOF, /quit or a signal)
	inputLoop(ctx, sess, files, userRepository, os.Stdin)

	// Stop the workers and wait for them before the deferred db.Close
	// runs, so no poll is mid-drain when the store goes away.
	stop()
	<-supDone
	return nil
}

// renderSink prints incoming items the moment the poll loop hands them
// over. Printing happens after the item left the queue; a crash in
// between loses the item (documented at-least-once behavior).
type renderSink struct{}

func (r *renderSink) Consume(item domain.QueueItem) {
	switch item.Kind {
	case domain.File:
		color.Yellow.Printf("%s sent a file: %s (%s)\n",
			item.Sender, filepath.Base(item.Content), item.Content)
	default:
		color.Cyan.Printf("%s: %s\n", item.Sender, item.Content)
	}
}

// inputLoop reads commands from in:
//
//	/users            list everyone you can message
//	/file TARGET PATH send a file to TARGET ("all" broadcasts)
//	@USER MESSAGE     private message
//	MESSAGE           broadcast
//	/quit             exit
//
// Input is read on its own goroutine so a canceled context unblocks the
// loop even while the reader sits on a blocked read.
func inputLoop(ctx context.Context, sess *session.Session, files *transfer.Store, users repositories.IUserRepository, in io.Reader) {
	self := sess.Identity().Username

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return

		case line == "/users":
			printUsers(self, users)

		case strings.HasPrefix(line, "/file "):
			target, path, ok := splitTargetArg(strings.TrimPrefix(line, "/file "))
			if !ok {
				color.Red.Println("usage: /file TARGET PATH")
				continue
			}
			ref, err := files.Put(target, path)
			if err != nil {
				color.Red.Printf("file transfer failed: %v\n", err)
				continue
			}
			if err := sess.SendFile(target, ref.Path); err != nil {
				color.Red.Printf("send failed: %v\n", err)
				continue
			}
			echo(target, "File sent: "+ref.Filename)

		case strings.HasPrefix(line, "@"):
			target, text, ok := splitTargetArg(strings.TrimPrefix(line, "@"))
			if !ok {
				color.Red.Println("usage: @USER MESSAGE")
				continue
			}
			if err := sess.SendText(target, text); err != nil {
				color.Red.Printf("send failed: %v\n", err)
				continue
			}
			echo(target, text)

		default:
			if err := sess.SendText(domain.Broadcast, line); err != nil {
				color.Red.Printf("send failed: %v\n", err)
				continue
			}
			echo(domain.Broadcast, line)
		}
	}
}

// splitTargetArg parses "TARGET REST" where TARGET may be "all" for a
// broadcast.
func splitTargetArg(s string) (domain.Target, string, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 2)
	if len(parts) != 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", false
	}
	target := domain.Target(parts[0])
	if strings.EqualFold(parts[0], "all") {
		target = domain.Broadcast
	}
	return target, strings.TrimSpace(parts[1]), true
}

// echo renders the sender's own message immediately. Outgoing messages
// never come back through the queue.
func echo(target domain.Target, text string) {
	if target.IsBroadcast() {
		color.Green.Printf("Broadcast: %s\n", text)
		return
	}
	color.Green.Printf("Private to %s: %s\n", target, text)
}

func printUsers(self string, users repositories.IUserRepository) {
	others, err := users.ListOthers(self)
	if err != nil {
		color.Red.Printf("listing users failed: %v\n", err)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.Append([]string{"All"})
	for _, name := range others {
		table.Append([]string{name})
	}
	table.Render()
}
