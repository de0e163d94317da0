// mock-issuer simulates a service enrolling a user in TOTP, for trying out
// otpdeck without a real account
//
// Usage:
//
//	go run ./scripts/mock-issuer [SERVICE_NAME] [ACCOUNT_NAME]
//
// Examples:
//
//	go run ./scripts/mock-issuer                        # TestService with testuser@example.com
//	go run ./scripts/mock-issuer GitHub                 # GitHub with testuser@example.com
//	go run ./scripts/mock-issuer Datadog ops@company.com
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/otpdeck/otpdeck/internal/otpauth"
	"github.com/otpdeck/otpdeck/internal/qrcode"
	"github.com/otpdeck/otpdeck/internal/totp"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorGreen  = "\033[0;32m"
	colorBlue   = "\033[0;34m"
	colorYellow = "\033[1;33m"
)

func main() {
	serviceName := "TestService"
	accountName := "testuser@example.com"

	if len(os.Args) > 1 {
		serviceName = os.Args[1]
	}
	if len(os.Args) > 2 {
		accountName = os.Args[2]
	}

	secret, err := totp.NewSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating secret: %v\n", err)
		os.Exit(1)
	}

	key := &otpauth.Key{
		Type:        "totp",
		Issuer:      serviceName,
		AccountName: accountName,
		Secret:      secret,
	}
	uri := key.String()

	fmt.Printf("%s=== Mock TOTP Service: %s ===%s\n", colorGreen, serviceName, colorReset)
	fmt.Println()
	fmt.Printf("%sAccount:%s %s\n", colorBlue, colorReset, accountName)
	fmt.Printf("%sSecret:%s  %s\n", colorBlue, colorReset, secret)
	fmt.Printf("%sURI:%s     %s\n", colorBlue, colorReset, uri)
	fmt.Println()
	fmt.Printf("%sQR Code:%s\n", colorYellow, colorReset)

	if qr, err := qrcode.Terminal(uri); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating QR code: %v\n", err)
	} else {
		fmt.Println(qr)
	}

	if code, err := totp.Generate(secret); err == nil {
		fmt.Printf("%sThe service now expects:%s %s (%ds left)\n", colorBlue, colorReset,
			code, totp.SecondsRemaining(time.Now(), totp.DefaultPeriod))
	}

	fmt.Println()
	fmt.Printf("%sTo set up in otpdeck:%s\n", colorGreen, colorReset)
	fmt.Printf("Run: %sotpdeck add %s -secret %s -issuer %s%s\n", colorYellow, serviceName, secret, serviceName, colorReset)
	fmt.Printf("  or: %sotpdeck add -uri '%s'%s\n", colorYellow, uri, colorReset)
	fmt.Println()
	fmt.Printf("%sTo test:%s\n", colorGreen, colorReset)
	fmt.Printf("Run: %sotpdeck code %s%s\n", colorYellow, serviceName, colorReset)
	fmt.Printf("  or: %sotpdeck code %s -clip%s (copy to clipboard)\n", colorYellow, serviceName, colorReset)
}
