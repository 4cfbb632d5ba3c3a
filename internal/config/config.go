package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration tree loaded from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Chain    ChainConfig    `yaml:"chain"`
	Quote    QuoteConfig    `yaml:"quote"`
	CORS     CORSConfig     `yaml:"cors"`
	Admin    AdminConfig    `yaml:"admin"`
	Assets   AssetsConfig   `yaml:"assets"`
	Vault    VaultConfig    `yaml:"vault"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Seed     SeedConfig     `yaml:"seed"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	Enabled       bool   `yaml:"enabled"`
}

// ChainConfig height feed configuration. The engine's grant windows are
// bounded by block height, observed from the first reachable RPC endpoint.
type ChainConfig struct {
	RPCEndpoints []string `yaml:"rpcEndpoints"`
	ChainID      int      `yaml:"chainId"`
	PollInterval int      `yaml:"pollInterval"` // seconds, 0 disables polling
}

// QuoteConfig external route quote service configuration
type QuoteConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
	Timeout int    `yaml:"timeout"` // seconds
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"` // seconds
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	JWTSecret      string   `yaml:"jwtSecret"`
	PasswordBcrypt string   `yaml:"passwordBcrypt"` // bcrypt hash of the admin password
	TOTPSecret     string   `yaml:"totpSecret"`     // empty disables the TOTP check
	TokenTTL       int      `yaml:"tokenTTL"`       // minutes
	AllowedIPs     []string `yaml:"allowedIPs"`     // IPs or CIDR ranges; empty means localhost only
}

// AssetConfig metadata for one asset registered in the balance book.
type AssetConfig struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// AssetsConfig the asset universe and the special roles within it.
type AssetsConfig struct {
	Registered []AssetConfig `yaml:"registered"`
	LegA       string        `yaml:"legA"`
	LegB       string        `yaml:"legB"`
	LegBNative string        `yaml:"legBNative"`
	Issued     string        `yaml:"issued"`
}

// VaultConfig reserve engine parameters. Rates and ratios are decimal
// strings scaled by 1e18.
type VaultConfig struct {
	Address          string `yaml:"address"`
	UnitFactor       string `yaml:"unitFactor"`
	RatioConstant    string `yaml:"ratioConstant"`
	ConversionRatioK string `yaml:"conversionRatioK"`
	MintFeeRate      string `yaml:"mintFeeRate"`
	BurnFeeRate      string `yaml:"burnFeeRate"`
}

// GatewayConfig swap orchestrator parameters.
type GatewayConfig struct {
	Address    string   `yaml:"address"`
	MinDeposit string   `yaml:"minDeposit"` // issued units
	Routers    []string `yaml:"routers"`    // initially whitelisted router addresses
	Supported  []string `yaml:"supported"`  // initially supported asset addresses
}

// SeedConfig bootstrap state applied once on first start.
type SeedConfig struct {
	Owner string `yaml:"owner"`
}

var AppConfig *Config

// LoadConfig loads the configuration file and applies environment variable
// overrides. An empty path falls back to config.local.yaml when present,
// then config.yaml.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)

	AppConfig = &config
	return nil
}

func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
		config.NATS.Enabled = true
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if rpcEndpoints := os.Getenv("CHAIN_RPC_ENDPOINTS"); rpcEndpoints != "" {
		config.Chain.RPCEndpoints = splitList(rpcEndpoints)
	}
	if interval := os.Getenv("CHAIN_POLL_INTERVAL"); interval != "" {
		if v, err := strconv.Atoi(interval); err == nil {
			config.Chain.PollInterval = v
		}
	}

	if quoteURL := os.Getenv("QUOTE_BASE_URL"); quoteURL != "" {
		config.Quote.BaseURL = quoteURL
	}
	if quoteKey := os.Getenv("QUOTE_API_KEY"); quoteKey != "" {
		config.Quote.APIKey = quoteKey
	}

	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		config.Admin.JWTSecret = secret
	}
	if hash := os.Getenv("ADMIN_PASSWORD_BCRYPT"); hash != "" {
		config.Admin.PasswordBcrypt = hash
	}
	if totp := os.Getenv("ADMIN_TOTP_SECRET"); totp != "" {
		config.Admin.TOTPSecret = totp
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.CORS.AllowedOrigins = splitList(corsOrigins)
	}

	if owner := os.Getenv("SEED_OWNER"); owner != "" {
		config.Seed.Owner = owner
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
