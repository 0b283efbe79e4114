package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"

	"custody-vault/go-backend/internal/identity"
)

func main() {
	mnemonic := flag.String("mnemonic", "", "Existing mnemonic to derive from (default: generate a new one)")
	flag.Parse()

	var (
		id     identity.Identity
		phrase = *mnemonic
		err    error
	)
	if phrase == "" {
		phrase, id, err = identity.Generate()
	} else {
		id, err = identity.FromMnemonic(phrase)
	}
	if err != nil {
		log.Fatalf("vault-rootkey: %v", err)
	}

	if *mnemonic == "" {
		fmt.Fprintf(os.Stdout, "mnemonic=%s\n", phrase)
	}
	fmt.Fprintf(os.Stdout, "address=%s\n", id.Address)
	fmt.Fprintf(os.Stdout, "public_key=%s\n", base64.StdEncoding.EncodeToString(id.PublicKey))
}
