// Command seeduser creates a staff account.
// Usage: go run ./cmd/seeduser -username admin -password secret123 -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"warehouse/internal/config"
	"warehouse/internal/dto"
	"warehouse/internal/infra"
	"warehouse/internal/model"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	req := dto.CreateUserRequest{}
	flag.StringVar(&req.Username, "username", "admin", "login name")
	flag.StringVar(&req.Name, "name", "Administrator", "display name")
	flag.StringVar(&req.Password, "password", "", "password (min 8 chars)")
	flag.StringVar(&req.Role, "role", model.RoleAdmin, "viewer | storekeeper | admin")
	flag.Parse()

	if err := validator.New().Struct(req); err != nil {
		log.Fatal().Err(err).Msg("invalid user")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	svc := service.NewAuthService(repository.NewUserRepository(db), cfg)
	user, err := svc.CreateUser(context.Background(), req)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user")
	}
	fmt.Printf("user %q created with role %s (id %s)\n", user.Username, user.Role, user.ID)
}
