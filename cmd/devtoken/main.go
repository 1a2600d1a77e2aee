// Command devtoken mints an access token for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"agrofin/internal/auth"
	"agrofin/internal/config"
	"agrofin/internal/domain"
)

func main() {
	subject := flag.String("sub", "", "token subject (default: random UUID)")
	email := flag.String("email", "dev@agrofin.local", "email claim")
	role := flag.String("role", string(domain.RoleAdmin), "role claim (admin or member)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "production" {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens in production")
		os.Exit(1)
	}

	sub := *subject
	if sub == "" {
		sub = uuid.NewString()
	}

	tokens := auth.NewTokenService(cfg.JWT)
	tok, err := tokens.Issue(sub, *email, domain.UserRole(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.ExpiresAt.Format(time.RFC3339))
	fmt.Println(tok.AccessToken)
}
