package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/TaskOrbit/internal/adapter/postgres"
	"github.com/Strob0t/TaskOrbit/internal/config"
	"github.com/Strob0t/TaskOrbit/internal/domain/user"
	"github.com/Strob0t/TaskOrbit/internal/service"
)

// runAdmin executes one admin subcommand against the configured database.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "reset-password":
		return adminResetPassword(rest)
	case "create-user":
		return adminCreateUser(rest)
	case "list-users":
		return adminListUsers(rest)
	}
	printAdminHelp()
	return fmt.Errorf("unknown admin command %q", cmd)
}

func printAdminHelp() {
	fmt.Fprint(os.Stderr, `Usage: taskorbit admin <command> [options]

Commands:
  create-user      Add a user account
  reset-password   Set a new password for an existing user
  list-users       Print all user accounts
  help             Show this message

Passwords can be passed with --password or entered at a hidden prompt.

Examples:
  taskorbit admin create-user --email ops@taskorbit.local --name "Ops"
  taskorbit admin reset-password --email admin@taskorbit.local
  taskorbit admin list-users
`)
}

// withAuthService connects to Postgres using the regular service config,
// runs fn, and tears the pool down afterwards. Subcommands stay focused
// on flags and output.
func withAuthService(fn func(context.Context, *service.AuthService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, service.NewAuthService(postgres.NewStore(pool), &cfg.Auth))
}

func adminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "account email (required)")
	password := fs.String("password", "", "new password; prompted when omitted") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	pass, err := resolvePassword(*password, "New password")
	if err != nil {
		return err
	}

	return withAuthService(func(ctx context.Context, auth *service.AuthService) error {
		if err := auth.ResetPassword(ctx, *email, pass); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		fmt.Fprintf(os.Stderr, "password updated for %s\n", *email)
		return nil
	})
}

func adminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "account email (required)")
	name := fs.String("name", "", "display name (required)")
	password := fs.String("password", "", "initial password; prompted when omitted") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	pass, err := resolvePassword(*password, "Password")
	if err != nil {
		return err
	}

	return withAuthService(func(ctx context.Context, auth *service.AuthService) error {
		u, err := auth.Register(ctx, &user.CreateRequest{Email: *email, Name: *name, Password: pass})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(os.Stderr, "created %s (id=%s)\n", u.Email, u.ID)
		return nil
	})
}

func adminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withAuthService(func(ctx context.Context, auth *service.AuthService) error {
		users, err := auth.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		if len(users) == 0 {
			fmt.Println("no users")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCREATED")
		for i := range users {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				users[i].ID, users[i].Email, users[i].Name,
				users[i].CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	})
}

// resolvePassword returns flagVal when set, otherwise prompts twice and
// requires both entries to match.
func resolvePassword(flagVal, label string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	pass, err := promptPassword(label + ": ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// promptPassword reads one line from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
