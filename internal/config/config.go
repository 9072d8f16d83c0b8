// Package config provides functionality for managing configuration options
// for the Videora client using command-line flags, a JSON config file, a
// .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when neither flags, config file nor environment set a value.
const (
	DefaultAPIURL        = "https://api.videora.app"
	DefaultFallbackURL   = "https://backup.videora.app"
	DefaultCallbackAddr  = "127.0.0.1:8765"
	DefaultQueryLimit    = 5
	DefaultMaxUploadSize = 500 << 20
)

// Options holds the configuration values for the client.
type Options struct {
	// Cmd is the command to run (login, login-credential, logout, whoami, shell).
	Cmd string `json:"-"`

	// APIURL is the primary backend origin.
	APIURL string `json:"api_url"`

	// FallbackURL is the secondary origin used when the primary profile
	// endpoint cannot be reached.
	FallbackURL string `json:"fallback_url"`

	// GoogleClientID is the OAuth client identifier used for Google sign-in.
	GoogleClientID string `json:"google_client_id"`

	// SessionFile is where the session is persisted.
	SessionFile string `json:"session_file"`

	// SessionKeyFile, when set, enables at-rest encryption of the session
	// file with a key derived from this file's content.
	SessionKeyFile string `json:"session_key_file"`

	// CAFile is an extra PEM CA bundle trusted for backend TLS.
	CAFile string `json:"ca_file"`

	// CallbackAddr is the loopback address of the OAuth callback listener.
	CallbackAddr string `json:"callback_addr"`

	// LogLevel is the zap log level.
	LogLevel string `json:"log_level"`

	// TimeoutSeconds bounds every backend request.
	TimeoutSeconds int `json:"timeout_seconds"`

	// QueryLimit is the number of AI generation queries allowed per session.
	QueryLimit int `json:"query_limit"`

	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64 `json:"max_upload_size"`

	// Credential is a Google ID token passed to the login-credential command.
	Credential string `json:"-"`

	// Ephemeral keeps the session in memory only.
	Ephemeral bool `json:"ephemeral"`

	// ShowVersion prints build metadata and exits.
	ShowVersion bool `json:"-"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Timeout returns the request timeout as a duration.
func (o *Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Parse parses os.Args and the environment. It exits the process on
// malformed flags, like flag.CommandLine does.
func Parse() *Options {
	o, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return o
}

// ParseArgs builds Options from args, then applies the config file, .env and
// environment variables. Later sources win: flags < config file < env.
func ParseArgs(args []string) (*Options, error) {
	o := &Options{}
	fs := flag.NewFlagSet("videora", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&o.Cmd, "cmd", "shell", "command: login | login-credential | logout | whoami | shell")
	fs.StringVar(&o.APIURL, "url", DefaultAPIURL, "primary backend URL")
	fs.StringVar(&o.FallbackURL, "fallback-url", DefaultFallbackURL, "secondary backend URL")
	fs.StringVar(&o.GoogleClientID, "google-client-id", "", "Google OAuth client id")
	fs.StringVar(&o.SessionFile, "session", defaultSessionFile(), "path to session file")
	fs.StringVar(&o.SessionKeyFile, "session-key", "", "path to key file for session encryption")
	fs.StringVar(&o.CAFile, "ca", "", "path to extra CA cert")
	fs.StringVar(&o.CallbackAddr, "callback", DefaultCallbackAddr, "OAuth callback listen address")
	fs.StringVar(&o.LogLevel, "log-level", "warn", "log level")
	fs.IntVar(&o.TimeoutSeconds, "timeout", 10, "request timeout in seconds")
	fs.IntVar(&o.QueryLimit, "query-limit", DefaultQueryLimit, "generation queries allowed per session")
	fs.Int64Var(&o.MaxUploadSize, "max-upload", DefaultMaxUploadSize, "max upload size in bytes")
	fs.StringVar(&o.Credential, "credential", "", "Google ID token for login-credential")
	fs.BoolVar(&o.Ephemeral, "ephemeral", false, "keep the session in memory only")
	fs.BoolVar(&o.ShowVersion, "version", false, "show build version and date")
	fs.StringVar(&o.Config, "config", "", "path to config file")
	fs.StringVar(&o.Config, "c", "", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}
	if o.Config != "" {
		if err := o.loadFile(o.Config); err != nil {
			return nil, err
		}
	}

	o.applyEnv()

	if o.APIURL == "" {
		return nil, errors.New("backend URL must not be empty")
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 10
	}
	return o, nil
}

func (o *Options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func (o *Options) applyEnv() {
	setString(&o.APIURL, "VIDEORA_API_URL")
	setString(&o.FallbackURL, "VIDEORA_FALLBACK_URL")
	setString(&o.GoogleClientID, "VIDEORA_GOOGLE_CLIENT_ID")
	setString(&o.SessionFile, "VIDEORA_SESSION_FILE")
	setString(&o.SessionKeyFile, "VIDEORA_SESSION_KEY")
	setString(&o.CAFile, "VIDEORA_CA_FILE")
	setString(&o.CallbackAddr, "VIDEORA_CALLBACK_ADDR")
	setString(&o.LogLevel, "VIDEORA_LOG_LEVEL")
	if v, err := strconv.Atoi(os.Getenv("VIDEORA_QUERY_LIMIT")); err == nil {
		o.QueryLimit = v
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(dir, "videora", "session.json")
}
