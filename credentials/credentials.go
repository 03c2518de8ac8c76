// Package credentials resolves the Alpaca API key pair from an ordered
// chain of sources: a YAML secrets file, process environment variables,
// then an interactive prompt. The first source that yields both values
// wins; the chain is walked once per process run.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names, also honored from a .env file when the
// caller loads one before resolving.
const (
	EnvKey    = "ALPACA_API_KEY"
	EnvSecret = "ALPACA_API_SECRET"
)

// ErrNotFound means every source in the chain came up empty.
var ErrNotFound = errors.New("no usable credentials found")

// Source identifies which provider in the chain produced the pair.
type Source string

const (
	SourceSecrets Source = "secrets"
	SourceEnv     Source = "env"
	SourcePrompt  Source = "prompt"
)

// Credentials is a resolved API key pair. Resolved once per run and
// never mutated afterwards.
type Credentials struct {
	Key    string
	Secret string
	Source Source
}

// Resolver walks the credential chain. The zero value is not usable;
// construct with NewResolver.
type Resolver struct {
	// SecretsFile is the YAML secrets file consulted first.
	// Empty means DefaultSecretsFile().
	SecretsFile string

	// LookupEnv, Interactive and Prompt default to the real environment
	// and terminal. Tests override them.
	LookupEnv   func(key string) (string, bool)
	Interactive func() bool
	Prompt      func() (key, secret string, err error)
}

// NewResolver returns a Resolver bound to the process environment and
// terminal. secretsFile may be empty to use the default location.
func NewResolver(secretsFile string) *Resolver {
	return &Resolver{
		SecretsFile: secretsFile,
		LookupEnv:   os.LookupEnv,
		Interactive: stdinIsTerminal,
		Prompt:      PromptPair,
	}
}

// Resolve walks the chain in fixed order: secrets file, environment,
// interactive prompt. A source is accepted only when both key and
// secret are non-empty; there are no retries across sources. When all
// sources fail the error wraps ErrNotFound and the caller must halt.
func (r *Resolver) Resolve() (Credentials, error) {
	if c, ok := r.fromSecrets(); ok {
		return c, nil
	}
	if c, ok := r.fromEnv(); ok {
		return c, nil
	}
	if c, ok := r.fromPrompt(); ok {
		return c, nil
	}

	return Credentials{}, fmt.Errorf(
		"set %s and %s, create %s, or run 'marketdash login': %w",
		EnvKey, EnvSecret, r.secretsPath(), ErrNotFound)
}

func (r *Resolver) secretsPath() string {
	if r.SecretsFile != "" {
		return r.SecretsFile
	}
	return DefaultSecretsFile()
}

// fromSecrets reads the YAML secrets file. Any failure (missing file,
// bad YAML, missing keys) falls through to the next source.
func (r *Resolver) fromSecrets() (Credentials, bool) {
	path := r.secretsPath()
	if path == "" {
		return Credentials{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, false
	}

	var sf secretsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return Credentials{}, false
	}

	key := strings.TrimSpace(sf.APIKey)
	secret := strings.TrimSpace(sf.APISecret)
	if key == "" || secret == "" {
		return Credentials{}, false
	}

	return Credentials{Key: key, Secret: secret, Source: SourceSecrets}, true
}

func (r *Resolver) fromEnv() (Credentials, bool) {
	key, _ := r.LookupEnv(EnvKey)
	secret, _ := r.LookupEnv(EnvSecret)

	key = strings.TrimSpace(key)
	secret = strings.TrimSpace(secret)
	if key == "" || secret == "" {
		return Credentials{}, false
	}

	return Credentials{Key: key, Secret: secret, Source: SourceEnv}, true
}

func (r *Resolver) fromPrompt() (Credentials, bool) {
	if r.Interactive == nil || !r.Interactive() {
		return Credentials{}, false
	}
	if r.Prompt == nil {
		return Credentials{}, false
	}

	key, secret, err := r.Prompt()
	if err != nil {
		return Credentials{}, false
	}

	key = strings.TrimSpace(key)
	secret = strings.TrimSpace(secret)
	if key == "" || secret == "" {
		return Credentials{}, false
	}

	return Credentials{Key: key, Secret: secret, Source: SourcePrompt}, true
}

// DefaultSecretsFile returns the per-user secrets location, or "" when
// the home directory cannot be determined.
func DefaultSecretsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "marketdash", "secrets.yaml")
}

type secretsFile struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Save writes the key pair to a YAML secrets file readable only by the
// owner, creating parent directories as needed.
func Save(path, key, secret string) error {
	if path == "" {
		return fmt.Errorf("secrets path is required")
	}
	if key == "" || secret == "" {
		return fmt.Errorf("key and secret are required")
	}

	data, err := yaml.Marshal(secretsFile{APIKey: key, APISecret: secret})
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}
