package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/teemow/apptdesk/internal/google"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "APPTDESK_"

// Calendar backends.
const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Config is the application configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Calendar Calendar `koanf:"calendar"`
	Hours    Hours    `koanf:"hours"`
	Google   Google   `koanf:"google"`
	Log      Log      `koanf:"log"`
}

type Server struct {
	Addr           string   `koanf:"addr"`
	AllowedOrigins []string `koanf:"allowedorigins"`
	// RateLimit is the number of requests per minute and client IP accepted on
	// the tool routes. Zero disables limiting.
	RateLimit int `koanf:"ratelimit"`
}

type Calendar struct {
	Backend     string `koanf:"backend"`
	ID          string `koanf:"id"`
	TimeZone    string `koanf:"timezone"`
	EventPrefix string `koanf:"eventprefix"`
}

// Hours are the business hours used by the next-slot search.
type Hours struct {
	Open  int `koanf:"open"`
	Close int `koanf:"close"`
}

type Google struct {
	AccessToken  string `koanf:"accesstoken"`
	RefreshToken string `koanf:"refreshtoken"`
	ClientID     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
	TokenURL     string `koanf:"tokenurl"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			RateLimit:      120,
		},
		Calendar: Calendar{
			Backend:     BackendGoogle,
			ID:          "primary",
			TimeZone:    "UTC",
			EventPrefix: "Appointment",
		},
		Hours: Hours{Open: 9, Close: 17},
		Google: Google{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Log: Log{Level: "info"},
	}
}

// legacyKeys maps the unprefixed variable names to config keys.
var legacyKeys = map[string]string{
	"GOOGLE_ACCESS_TOKEN":  "google.accesstoken",
	"GOOGLE_REFRESH_TOKEN": "google.refreshtoken",
	"GOOGLE_CLIENT_ID":     "google.clientid",
	"GOOGLE_CLIENT_SECRET": "google.clientsecret",
	"GOOGLE_CALENDAR_ID":   "calendar.id",
	"PORT":                 "server.addr",
	"LOG_LEVEL":            "log.level",
}

// Load reads the configuration. path may be empty or point to a missing
// file; both fall back to defaults and environment.
func Load(path string) (Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
			slog.Debug("config file not found, using defaults and environment", "path", path)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformPrefixed,
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load %s environment: %w", EnvPrefix, err)
	}

	err = k.Load(env.Provider(".", env.Opt{
		TransformFunc: transformLegacy,
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func transformPrefixed(k, v string) (string, any) {
	k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
	if k == "server.allowedorigins" {
		return k, splitList(v)
	}
	return k, v
}

func transformLegacy(k, v string) (string, any) {
	key, ok := legacyKeys[k]
	if !ok || v == "" {
		return "", nil
	}
	if k == "PORT" && !strings.Contains(v, ":") {
		v = ":" + v
	}
	return key, v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values that cannot be corrected at runtime.
func (c Config) Validate() error {
	var errs []error

	switch c.Calendar.Backend {
	case BackendGoogle, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("calendar backend must be %q or %q, got %q", BackendGoogle, BackendMemory, c.Calendar.Backend))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Hours.Open < 0 || c.Hours.Close > 24 || c.Hours.Open >= c.Hours.Close {
		errs = append(errs, fmt.Errorf("business hours must satisfy 0 <= open < close <= 24, got %d-%d", c.Hours.Open, c.Hours.Close))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit cannot be negative"))
	}
	if strings.TrimSpace(c.Calendar.EventPrefix) == "" {
		errs = append(errs, fmt.Errorf("event prefix cannot be empty"))
	}

	return errors.Join(errs...)
}

// Location returns the time zone in which dates and times are interpreted.
func (c Config) Location() (*time.Location, error) {
	if c.Calendar.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

// GoogleCredentials returns the Google OAuth material.
func (c Config) GoogleCredentials() google.Credentials {
	return google.Credentials{
		AccessToken:  c.Google.AccessToken,
		RefreshToken: c.Google.RefreshToken,
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		TokenURL:     c.Google.TokenURL,
	}
}
