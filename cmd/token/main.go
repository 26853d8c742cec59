// Command token mints a development JWT for a registered user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"pairchat/auth"
	"pairchat/internal"
	"pairchat/repositories"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	username := flag.String("user", "", "Username the token is issued for")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()
	if *username == "" {
		log.Fatal("-user is required")
	}

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// The server may hold the lock, the lookup only reads.
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	user, err := repositories.NewUserRepository(db).GetUserByUsername(context.Background(), *username)
	if err != nil {
		log.Fatalf("Unknown user %q: %v", *username, err)
	}
	token, err := auth.NewVerifier(config.JwtSecret, config.JwtIssuer).GenerateToken(user.ID, *ttl)
	if err != nil {
		log.Fatalf("Token generation failed: %v", err)
	}
	fmt.Println(token)
}
