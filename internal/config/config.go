// Package config provides functionality for managing configuration options
// for the gate server using command-line flags, environment variables,
// a .env file and an optional JSON or YAML config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string

	// RedisURL is either redis://... or host:port.
	RedisURL string

	// Config is the path to the config file.
	Config string

	// EnvFile is the path to an optional .env file.
	EnvFile string

	// JWTSecret signs session tokens.
	JWTSecret string

	// MasterPasswordHash is the bcrypt hash of the master secret.
	// Master login is disabled when empty.
	MasterPasswordHash string

	// SessionTTL is the lifetime of a session and its cookie.
	SessionTTL time.Duration

	// ResetTTL is the lifetime of a password reset token.
	ResetTTL time.Duration

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool

	// TrustProxy takes client addresses from X-Forwarded-For / X-Real-IP.
	// Off unless the server sits behind a proxy that sets them.
	TrustProxy bool

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string

	// RateLimitRPS and RateLimitBurst bound credential requests per client IP.
	RateLimitRPS   float64
	RateLimitBurst int

	// AttemptRetention is how long login attempts are kept.
	AttemptRetention time.Duration

	// RevealVideoURL is served when no object storage is configured.
	RevealVideoURL string

	// S3 settings for presigned reveal video URLs.
	S3Bucket    string
	S3Key       string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// LogLevel is passed to the zap logger.
	LogLevel string
}

// fileOptions is the on-disk shape of the config file. Durations are
// strings such as "720h".
type fileOptions struct {
	Address            string  `json:"address" yaml:"address"`
	DatabaseDSN        string  `json:"database_dsn" yaml:"database_dsn"`
	RedisURL           string  `json:"redis_url" yaml:"redis_url"`
	JWTSecret          string  `json:"jwt_secret" yaml:"jwt_secret"`
	MasterPasswordHash string  `json:"master_password_hash" yaml:"master_password_hash"`
	SessionTTL         string  `json:"session_ttl" yaml:"session_ttl"`
	ResetTTL           string  `json:"reset_ttl" yaml:"reset_ttl"`
	CookieSecure       *bool   `json:"cookie_secure" yaml:"cookie_secure"`
	TrustProxy         *bool   `json:"trust_proxy" yaml:"trust_proxy"`
	TLSCert            string  `json:"tls_cert" yaml:"tls_cert"`
	TLSKey             string  `json:"tls_key" yaml:"tls_key"`
	RateLimitRPS       float64 `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst     int     `json:"rate_limit_burst" yaml:"rate_limit_burst"`
	AttemptRetention   string  `json:"attempt_retention" yaml:"attempt_retention"`
	RevealVideoURL     string  `json:"reveal_video_url" yaml:"reveal_video_url"`
	S3Bucket           string  `json:"s3_bucket" yaml:"s3_bucket"`
	S3Key              string  `json:"s3_key" yaml:"s3_key"`
	S3Region           string  `json:"s3_region" yaml:"s3_region"`
	S3Endpoint         string  `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey        string  `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey        string  `json:"s3_secret_key" yaml:"s3_secret_key"`
	LogLevel           string  `json:"log_level" yaml:"log_level"`
}

// Defaults returns the development defaults.
func Defaults() *Options {
	return &Options{
		Port:             "localhost:8080",
		RedisURL:         "localhost:6379",
		Config:           "config.json",
		EnvFile:          ".env",
		SessionTTL:       30 * 24 * time.Hour,
		ResetTTL:         15 * time.Minute,
		RateLimitRPS:     1,
		RateLimitBurst:   5,
		AttemptRetention: 30 * 24 * time.Hour,
		RevealVideoURL:   "/static/nilavanti.mp4",
		S3Region:         "us-east-1",
		LogLevel:         "info",
	}
}

// Parse parses the command-line flags and environment variables and exits
// the process on invalid configuration.
func Parse() *Options {
	opts, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return opts
}

// Load builds Options from defaults, the config file, the .env file, the
// environment and finally args, each layer overriding the previous one.
func Load(args []string) (*Options, error) {
	opts := Defaults()

	fs := newFlagSet(opts)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" && !flagSet(fs, "config", "c") {
		opts.Config = configPath
	}

	if err := loadFile(opts); err != nil {
		return nil, err
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := loadEnv(opts); err != nil {
		return nil, err
	}

	// Explicit flags win over everything else.
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate reports configuration that the server cannot run with.
func (o *Options) Validate() error {
	if o.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if o.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if o.ResetTTL <= 0 {
		return errors.New("reset ttl must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	if o.RateLimitRPS <= 0 || o.RateLimitBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	return nil
}

// TLSEnabled reports whether the server should listen with TLS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

// S3Enabled reports whether reveal media is served from object storage.
func (o *Options) S3Enabled() bool {
	return o.S3Bucket != "" && o.S3Key != ""
}

func newFlagSet(o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&o.Port, "a", o.Port, "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "db address")
	fs.StringVar(&o.RedisURL, "r", o.RedisURL, "redis url or host:port")
	fs.StringVar(&o.Config, "config", o.Config, "path to config file")
	fs.StringVar(&o.Config, "c", o.Config, "path to config file (shorthand)")
	fs.StringVar(&o.EnvFile, "env", o.EnvFile, "path to .env file")
	fs.StringVar(&o.JWTSecret, "s", o.JWTSecret, "session token signing secret")
	fs.StringVar(&o.MasterPasswordHash, "master-hash", o.MasterPasswordHash, "bcrypt hash of the master secret")
	fs.DurationVar(&o.SessionTTL, "session-ttl", o.SessionTTL, "session lifetime")
	fs.DurationVar(&o.ResetTTL, "reset-ttl", o.ResetTTL, "password reset token lifetime")
	fs.BoolVar(&o.CookieSecure, "cookie-secure", o.CookieSecure, "set Secure on the session cookie")
	fs.BoolVar(&o.TrustProxy, "trust-proxy", o.TrustProxy, "take client IPs from X-Forwarded-For (only behind a proxy)")
	fs.StringVar(&o.TLSCert, "tls-cert", o.TLSCert, "path to TLS certificate")
	fs.StringVar(&o.TLSKey, "tls-key", o.TLSKey, "path to TLS key")
	fs.Float64Var(&o.RateLimitRPS, "rps", o.RateLimitRPS, "credential requests per second per client")
	fs.IntVar(&o.RateLimitBurst, "burst", o.RateLimitBurst, "credential request burst per client")
	fs.DurationVar(&o.AttemptRetention, "attempt-retention", o.AttemptRetention, "login attempt retention")
	fs.StringVar(&o.RevealVideoURL, "video", o.RevealVideoURL, "reveal video URL")
	fs.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	return fs
}

func flagSet(fs *flag.FlagSet, names ...string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		for _, n := range names {
			if f.Name == n {
				found = true
			}
		}
	})
	return found
}

func loadFile(o *Options) error {
	if o.Config == "" {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fo fileOptions
	switch strings.ToLower(filepath.Ext(o.Config)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fo)
	default:
		err = json.Unmarshal(data, &fo)
	}
	if err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return fo.apply(o)
}

func (fo *fileOptions) apply(o *Options) error {
	setString(&o.Port, fo.Address)
	setString(&o.DatabaseDSN, fo.DatabaseDSN)
	setString(&o.RedisURL, fo.RedisURL)
	setString(&o.JWTSecret, fo.JWTSecret)
	setString(&o.MasterPasswordHash, fo.MasterPasswordHash)
	setString(&o.TLSCert, fo.TLSCert)
	setString(&o.TLSKey, fo.TLSKey)
	setString(&o.RevealVideoURL, fo.RevealVideoURL)
	setString(&o.S3Bucket, fo.S3Bucket)
	setString(&o.S3Key, fo.S3Key)
	setString(&o.S3Region, fo.S3Region)
	setString(&o.S3Endpoint, fo.S3Endpoint)
	setString(&o.S3AccessKey, fo.S3AccessKey)
	setString(&o.S3SecretKey, fo.S3SecretKey)
	setString(&o.LogLevel, fo.LogLevel)
	if fo.CookieSecure != nil {
		o.CookieSecure = *fo.CookieSecure
	}
	if fo.TrustProxy != nil {
		o.TrustProxy = *fo.TrustProxy
	}
	if fo.RateLimitRPS > 0 {
		o.RateLimitRPS = fo.RateLimitRPS
	}
	if fo.RateLimitBurst > 0 {
		o.RateLimitBurst = fo.RateLimitBurst
	}
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"session_ttl", fo.SessionTTL, &o.SessionTTL},
		{"reset_ttl", fo.ResetTTL, &o.ResetTTL},
		{"attempt_retention", fo.AttemptRetention, &o.AttemptRetention},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func loadEnv(o *Options) error {
	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Port = serverAddress
	}
	for env, dst := range map[string]*string{
		"DATABASE_DSN":         &o.DatabaseDSN,
		"REDIS_URL":            &o.RedisURL,
		"JWT_SECRET":           &o.JWTSecret,
		"MASTER_PASSWORD_HASH": &o.MasterPasswordHash,
		"TLS_CERT":             &o.TLSCert,
		"TLS_KEY":              &o.TLSKey,
		"REVEAL_VIDEO_URL":     &o.RevealVideoURL,
		"S3_BUCKET":            &o.S3Bucket,
		"S3_KEY":               &o.S3Key,
		"S3_REGION":            &o.S3Region,
		"S3_ENDPOINT":          &o.S3Endpoint,
		"S3_ACCESS_KEY":        &o.S3AccessKey,
		"S3_SECRET_KEY":        &o.S3SecretKey,
		"LOG_LEVEL":            &o.LogLevel,
	} {
		setString(dst, os.Getenv(env))
	}

	for env, dst := range map[string]*time.Duration{
		"SESSION_TTL":       &o.SessionTTL,
		"RESET_TTL":         &o.ResetTTL,
		"ATTEMPT_RETENTION": &o.AttemptRetention,
	} {
		raw := os.Getenv(env)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", env, err)
		}
		*dst = v
	}

	for env, dst := range map[string]*bool{
		"COOKIE_SECURE": &o.CookieSecure,
		"TRUST_PROXY":   &o.TrustProxy,
	} {
		raw := os.Getenv(env)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", env, err)
		}
		*dst = v
	}
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
		}
		o.RateLimitRPS = v
	}
	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
		}
		o.RateLimitBurst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
