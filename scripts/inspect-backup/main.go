// inspect-backup prints the records of an otpdeck backup without importing it.
// Secrets are masked unless -reveal is given.
//
// Usage:
//
//	go run ./scripts/inspect-backup [-reveal] <backup-file>
//	otpdeck export - | go run ./scripts/inspect-backup
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/otpdeck/otpdeck/internal/backup"
)

func main() {
	reveal := flag.Bool("reveal", false, "Print secrets in full")
	flag.Parse()

	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Println("Open error:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	entries, skipped, err := backup.Import(in)
	if err != nil {
		fmt.Println("Decode error:", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d entries:\n\n", len(entries))
	for i, e := range entries {
		opts := e.Options()
		secret := e.Secret
		if !*reveal {
			secret = mask(secret)
		}

		fmt.Printf("Entry %d:\n", i+1)
		fmt.Printf("  name:   %s\n", e.Name)
		fmt.Printf("  label:  %s\n", e.Label)
		fmt.Printf("  issuer: %s\n", e.Issuer)
		fmt.Printf("  type:   %s/%d/%ds\n", opts.Algorithm, opts.Digits, opts.Period)
		fmt.Printf("  secret: %s\n", secret)
		fmt.Println()
	}

	if len(skipped) > 0 {
		fmt.Printf("%d records could not be read:\n", len(skipped))
		for _, rec := range skipped {
			fmt.Printf("  %v\n", rec)
		}
	}
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
