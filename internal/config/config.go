package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// IdentityConfig points at the identity provider's REST surface.
// SignInURL and SignUpURL follow the identity-toolkit shape
// (accounts:signInWithPassword / accounts:signUp).
type IdentityConfig struct {
	SignInURL string
	SignUpURL string
	APIKey    string
	// Issuer of the federated provider, used to verify ID tokens.
	Issuer string
	// Timeout for identity provider round-trips.
	Timeout time.Duration
}

// RedisSettings configures the optional shared token store backend.
type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

// ProfileConfig tunes the user profile resolver.
type ProfileConfig struct {
	Freshness  time.Duration
	MaxRetries int
}

type Config struct {
	// Port the local web front listens on.
	Port string
	// BaseURL of the hosted marketplace API.
	APIBaseURL string
	AppEnv     string
	LogLevel   string

	Identity IdentityConfig
	// OAuth configuration of the federated "popup" provider. The
	// redirect URL points back at the local callback route.
	OAuthProviders map[string]*oauth2.Config
	StateCookieName string

	// TokenStoreBackend selects "file" or "redis".
	TokenStoreBackend string
	TokenFilePath     string
	SessionFilePath   string
	RedisSettings     RedisSettings

	Profile ProfileConfig
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	port := viper.GetString("APP_PORT")
	if port == "" {
		port = "8080"
	}

	apiBaseURL := viper.GetString("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "https://yoga-master-1.onrender.com"
	}

	stateDir := viper.GetString("STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".yoga-client")
	}

	backend := viper.GetString("TOKEN_STORE_BACKEND")
	if backend != "redis" {
		backend = "file"
	}

	freshness := viper.GetDuration("PROFILE_FRESHNESS")
	if freshness <= 0 {
		freshness = 5 * time.Minute
	}
	maxRetries := viper.GetInt("PROFILE_MAX_RETRIES")
	if maxRetries <= 0 {
		maxRetries = 2
	}

	identityTimeout := viper.GetDuration("IDENTITY_TIMEOUT")
	if identityTimeout <= 0 {
		identityTimeout = 30 * time.Second
	}

	issuer := viper.GetString("IDENTITY_ISSUER")
	if issuer == "" {
		issuer = "https://accounts.google.com"
	}

	stateCookie := viper.GetString("STATE_COOKIE_NAME")
	if stateCookie == "" {
		stateCookie = "oauth_state"
	}

	oauthProviders := make(map[string]*oauth2.Config)
	oauthProviders["GOOGLE"] = &oauth2.Config{
		ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  viper.GetString("GOOGLE_REDIRECT_URL"),
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}

	return &Config{
		Port:            port,
		APIBaseURL:      apiBaseURL,
		AppEnv:          viper.GetString("APP_ENV"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		StateCookieName: stateCookie,
		Identity: IdentityConfig{
			SignInURL: viper.GetString("IDENTITY_SIGN_IN_URL"),
			SignUpURL: viper.GetString("IDENTITY_SIGN_UP_URL"),
			APIKey:    viper.GetString("IDENTITY_API_KEY"),
			Issuer:    issuer,
			Timeout:   identityTimeout,
		},
		OAuthProviders:    oauthProviders,
		TokenStoreBackend: backend,
		TokenFilePath:     filepath.Join(stateDir, "token.json"),
		SessionFilePath:   filepath.Join(stateDir, "session.json"),
		RedisSettings: RedisSettings{
			Address:  viper.GetString("REDIS_ADDRESS"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Profile: ProfileConfig{
			Freshness:  freshness,
			MaxRetries: maxRetries,
		},
	}, nil
}
