package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"github.com/dimasromerop/portal-giav/lib/security"
)

// prints a bcrypt hash for ADMIN_TOKEN_HASH, generating a token when none
// is given
func main() {
	token := flag.String("token", "", "admin token to hash")
	flag.Parse()

	if *token == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			log.Fatal(err)
		}
		*token = base64.RawURLEncoding.EncodeToString(raw)
		fmt.Println("admin token: ", *token)
	}

	hash, err := security.HashToken(*token)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("ADMIN_TOKEN_HASH=" + hash)
}
