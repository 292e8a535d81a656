// Command questctl performs one-off administrative tasks against the
// configured store: registering users, promoting admins and minting
// session tokens.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/auth"
	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/config"
	"github.com/okian/commitquest/pkg/logger"
)

const usage = `usage: questctl <command> [flags]

commands:
  register -github ID -login LOGIN [-name NAME] [-email EMAIL] [-image URL]
  promote  [-email EMAIL]     promote EMAIL, or the earliest user when empty
  token    -user UUID [-ttl 168h]

Configuration is read like the server: QUEST_CONFIG then QUEST_* variables.
`

var errUsage = errors.New("usage")

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Stderr.WriteString(usage)
			os.Exit(2)
		}
		os.Stderr.WriteString("questctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	svc := service.New(store, service.WithLogger(logger.Nop()))

	switch args[0] {
	case "register":
		return register(ctx, svc, args[1:], out)
	case "promote":
		return promote(ctx, svc, args[1:], out)
	case "token":
		return token(ctx, svc, cfg, args[1:], out)
	default:
		return errUsage
	}
}

func register(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var r service.Registration
	fs.StringVar(&r.GitHubID, "github", "", "GitHub account id")
	fs.StringVar(&r.Login, "login", "", "GitHub login")
	fs.StringVar(&r.Name, "name", "", "display name (defaults to login)")
	fs.StringVar(&r.Email, "email", "", "email address")
	fs.StringVar(&r.Image, "image", "", "avatar URL")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	u, err := svc.RegisterUser(ctx, r)
	if err != nil {
		return err
	}
	return printJSON(out, u)
}

func promote(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	email := fs.String("email", "", "email of the user to promote")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	u, err := svc.PromoteAdmin(ctx, *email)
	if err != nil {
		return err
	}
	return printJSON(out, u)
}

func token(ctx context.Context, svc *service.Service, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "user id")
	ttl := fs.Duration("ttl", 7*24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := uuid.Parse(*user)
	if err != nil {
		return fmt.Errorf("invalid -user: %w", err)
	}
	role, err := svc.RoleOf(ctx, id)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, auth.WithTTL(*ttl))
	if err != nil {
		return err
	}
	tok, err := tokens.Issue(id, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
