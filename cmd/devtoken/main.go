// Command devtoken prints a bearer token for a local account.
//
//	devtoken -user 42 -secret secretKey -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/server/auth"
)

func main() {
	user := flag.String("user", "", "account id to put in the user_id claim")
	secret := flag.String("secret", "secretKey", "HMAC secret shared with the server")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -user is required")
		os.Exit(2)
	}

	tok, err := auth.GenerateToken(models.ID(*user), []byte(*secret), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
