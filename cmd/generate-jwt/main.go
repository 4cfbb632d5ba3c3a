package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"issuance-backend/internal/config"
	"issuance-backend/internal/services"

	"github.com/golang-jwt/jwt/v5"
)

// Generates an admin JWT for testing the admin API without going through
// the login flow. Uses the same claims shape as AdminAuthService.
func main() {
	username := flag.String("username", "admin", "subject for the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if config.AppConfig.Admin.JWTSecret == "" {
		log.Fatal("admin.jwtSecret is not configured")
	}

	now := time.Now()
	claims := services.AdminClaims{
		Username: *username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "issuance-backend-admin",
			Subject:   *username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(config.AppConfig.Admin.JWTSecret))
	if err != nil {
		log.Fatalf("Error generating token: %v", err)
	}

	fmt.Println("Admin JWT generated")
	fmt.Println()
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Printf("Expires: %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Printf("curl -H \"Authorization: Bearer $TOKEN\" http://localhost:%d/api/admin/roles/owner\n", config.AppConfig.Server.Port)
}
