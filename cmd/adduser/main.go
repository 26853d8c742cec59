// Command adduser registers users in the directory. The server must be stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"pairchat/internal"
	"pairchat/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: adduser <username>...")
	}

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	users := repositories.NewUserRepository(db)
	for _, username := range flag.Args() {
		user, err := users.CreateUser(context.Background(), username)
		if err != nil {
			log.Printf("Skipping %q: %v", username, err)
			continue
		}
		fmt.Printf("%s\t%s\n", user.ID, user.Username)
	}
}
