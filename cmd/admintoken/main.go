// Command admintoken mints a bearer token that lists every file via GET /all_files.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abduss/bitbeem/internal/auth"
	"github.com/abduss/bitbeem/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("subject", "operator", "token subject recorded in request logs")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to BITBEEM_ADMIN_TOKEN_TTL)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Auth.AdminTokenSecret == "" {
		log.Fatal("BITBEEM_ADMIN_JWT_SECRET is not set")
	}

	lifetime := cfg.Auth.AdminTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, expiresAt, err := auth.NewAdminTokens(cfg.Auth.AdminTokenSecret, lifetime).Issue(*subject)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	fmt.Println(token)
}
