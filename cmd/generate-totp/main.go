package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pquerna/otp/totp"
)

// Prints the current TOTP code for the admin login. The secret comes from
// ADMIN_TOTP_SECRET; with no secret set the login flow skips TOTP entirely.
func main() {
	secret := os.Getenv("ADMIN_TOTP_SECRET")
	if secret == "" {
		fmt.Println("ADMIN_TOTP_SECRET is not set")
		os.Exit(1)
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		fmt.Printf("Error generating TOTP code: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Current TOTP Code: %s\n", code)
	fmt.Printf("Valid for: ~30 seconds\n")
}
