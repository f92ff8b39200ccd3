// Command issue-token prints a signed principal token for use as a bearer
// token against the quest-ledger API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/terra-clan/quest-ledger/internal/auth"
	"github.com/terra-clan/quest-ledger/internal/models"
)

func main() {
	principal := flag.String("principal", "", "principal the token proves control of")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	if *principal == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -principal <id> [-ttl 24h]")
		os.Exit(2)
	}

	issuer, err := auth.NewIssuer(os.Getenv("AUTH_JWT_SECRET"), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (set AUTH_JWT_SECRET)\n", err)
		os.Exit(1)
	}

	token, err := issuer.Issue(models.Principal(*principal))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
