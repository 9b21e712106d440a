// adminctl is an operator tool for bootstrapping NoteCloud accounts from the
// command line, e.g. seeding the first user of a fresh deployment. The
// password is read from the terminal without echo.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/notecloud/backend/internal/flagx"
	"github.com/notecloud/backend/internal/server/auth"
	"github.com/notecloud/backend/internal/server/config"
	"github.com/notecloud/backend/internal/server/repositories/repomanager"
	"github.com/notecloud/backend/internal/server/services"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	var name, email string

	args := flagx.FilterArgs(os.Args[1:], []string{"-n", "-e"})
	fs := flag.NewFlagSet("adminctl", flag.ContinueOnError)
	fs.StringVar(&name, "n", "", "display name of the new user")
	fs.StringVar(&email, "e", "", "email of the new user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if name == "" || email == "" {
		return fmt.Errorf("both -n and -e are required")
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	tokens := auth.NewManager([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
	authService := services.NewAuthService(db, m, tokens)

	user, err := authService.Register(ctx, name, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("registered user %s (%s)\n", user.ID, user.Email)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}

	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}

	return string(first), nil
}
