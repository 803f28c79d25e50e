package main

import (
	"flag"
	"fmt"
	"os"

	"localchat/internal"
	"localchat/repositories"
	"localchat/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Registration seeds the directory. It is a separate tool on purpose: the
// chat client itself never writes to the directory.
func main() {
	username := flag.String("user", "", "username to register")
	password := flag.String("pass", "", "password for the new user")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: register -user NAME -pass PASSWORD")
		os.Exit(2)
	}

	if err := run(*username, *password); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(username, password string) error {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.Logger(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("store opening failed: %w", err)
	}
	defer db.Close()

	authService := services.NewAuthService(
		repositories.NewUserRepository(db), config.AuthTokenDuration)

	identity, _, err := authService.Register(username, password)
	if err != nil {
		return err
	}

	log.Info("User registered", "user", identity.Username, "id", identity.ID)
	return nil
}
