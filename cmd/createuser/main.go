// Command createuser adds a user directly to the database. Running it again
// for an existing username leaves that user untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/bradleygolden/userapi/internal/auth"
	"github.com/bradleygolden/userapi/internal/config"
	"github.com/bradleygolden/userapi/internal/database"
	"github.com/bradleygolden/userapi/internal/logger"
	"github.com/bradleygolden/userapi/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	username := flag.String("username", "", "username of the new user (required)")
	password := flag.String("password", "", "password of the new user (required)")
	email := flag.String("email", "", "optional email address")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	users := services.NewUserService(db, auth.NewHasher(cfg.BcryptCost), services.NewEventService(db))
	user, err := users.CreateUser(context.Background(), services.CreateUserInput{
		Username: *username,
		Password: *password,
		Email:    *email,
	})
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		log.Info().Str("username", *username).Msg("User already exists")
	case err != nil:
		log.Fatal().Err(err).Str("username", *username).Msg("Failed to create user")
	default:
		log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User created")
	}
}
