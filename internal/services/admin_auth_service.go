package services

import (
	"errors"
	"fmt"
	"time"

	"issuance-backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAdminNotConfigured = errors.New("admin: credentials not configured")
	ErrBadCredentials     = errors.New("admin: invalid credentials")
	ErrBadTOTP            = errors.New("admin: invalid TOTP code")
	ErrBadToken           = errors.New("admin: invalid or expired token")
)

// AdminClaims is the JWT payload issued to a logged-in administrator.
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuthService issues and validates admin session tokens. The password
// is stored as a bcrypt hash in config; when a TOTP secret is configured the
// one-time code is mandatory.
type AdminAuthService struct {
	jwtSecret      []byte
	passwordBcrypt string
	totpSecret     string
	tokenTTL       time.Duration
}

func NewAdminAuthService(cfg config.AdminConfig) *AdminAuthService {
	ttl := time.Duration(cfg.TokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cfg.JWTSecret == "" {
		logrus.Warn("ADMIN_JWT_SECRET not set; admin login is disabled")
	}
	return &AdminAuthService{
		jwtSecret:      []byte(cfg.JWTSecret),
		passwordBcrypt: cfg.PasswordBcrypt,
		totpSecret:     cfg.TOTPSecret,
		tokenTTL:       ttl,
	}
}

// Login checks the password (and TOTP code when configured) and returns a
// signed session token.
func (s *AdminAuthService) Login(username, password, totpCode string) (string, error) {
	if len(s.jwtSecret) == 0 || s.passwordBcrypt == "" {
		return "", ErrAdminNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordBcrypt), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	if s.totpSecret != "" {
		if !totp.Validate(totpCode, s.totpSecret) {
			return "", ErrBadTOTP
		}
	}

	now := time.Now()
	claims := AdminClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "issuance-backend-admin",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("admin: sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and checks a session token.
func (s *AdminAuthService) Validate(tokenString string) (*AdminClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, ErrAdminNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrBadToken
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid || claims.Role != "admin" {
		return nil, ErrBadToken
	}
	return claims, nil
}
