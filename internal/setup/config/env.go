package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

const (
	EnvDiscordToken = "DISCORD_TOKEN"
	EnvWebhookURL   = "WEBHOOK_URL"
)

// ApplyEnv overlays credentials onto the config. Process environment variables
// take precedence over the dotenv file, which takes precedence over the TOML values.
func ApplyEnv(c *Config) error {
	values, err := NewEnvStore(c.EnvFile).Read()
	if err != nil {
		return err
	}

	for _, key := range []string{EnvDiscordToken, EnvWebhookURL} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			values[key] = v
		}
	}

	if v := values[EnvDiscordToken]; v != "" {
		c.Discord.Token = v
	}

	if v := values[EnvWebhookURL]; v != "" {
		c.Webhook.URL = v
	}

	return nil
}

// EnvStore reads and rewrites the dotenv credentials file.
type EnvStore struct {
	path string
	mu   sync.Mutex
}

// NewEnvStore creates a store for the dotenv file at path.
func NewEnvStore(path string) *EnvStore {
	return &EnvStore{path: path}
}

// Path returns the dotenv file path.
func (s *EnvStore) Path() string {
	return s.path
}

// Read returns the key/value pairs of the file. A missing file yields an empty map.
func (s *EnvStore) Read() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

func (s *EnvStore) read() (map[string]string, error) {
	values, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", s.path, err)
	}

	return values, nil
}

// Update merges the non-empty values into the file, keeping any other keys.
func (s *EnvStore) Update(updates map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}

	changed := false

	for key, value := range updates {
		if value == "" {
			continue
		}

		values[key] = value
		changed = true
	}

	if !changed {
		return nil
	}

	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", s.path, err)
	}

	return nil
}
