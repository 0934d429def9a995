package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// AppName names the per-application directory used by the ghauth CLI itself.
const AppName = "ghauth"

// Settings holds CLI defaults read from settings.toml.
type Settings struct {
	ClientID     string   `toml:"client_id"`
	Scopes       []string `toml:"scopes"`
	ConfigName   string   `toml:"config_name"`
	GitHubHost   string   `toml:"github_host"`
	AuthURL      string   `toml:"auth_url"`
	UserAgent    string   `toml:"user_agent"`
	Note         string   `toml:"note"`
	NoDeviceFlow bool     `toml:"no_device_flow"`
}

// ConfigNameOrDefault returns ConfigName if set, otherwise AppName.
func (s Settings) ConfigNameOrDefault() string {
	if s.ConfigName != "" {
		return s.ConfigName
	}
	return AppName
}

// LoadSettings reads settings from the given TOML file path.
// If the file does not exist, it returns empty settings without error.
// Environment variables always take precedence over file values:
//   - GHAUTH_CLIENT_ID overrides client_id
//   - GHAUTH_SCOPES    overrides scopes (comma or space separated)
//   - GHAUTH_HOST      overrides github_host
//   - GHAUTH_AUTH_URL  overrides auth_url
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &s); err != nil {
			return Settings{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	applyEnvOverrides(&s)
	return s, nil
}

// DefaultSettingsPath returns the default path for the ghauth settings file.
func DefaultSettingsPath() string {
	return filepath.Join(Dir(AppName), "settings.toml")
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("GHAUTH_CLIENT_ID"); v != "" {
		s.ClientID = v
	}
	if v := os.Getenv("GHAUTH_SCOPES"); v != "" {
		s.Scopes = SplitScopes(v)
	}
	if v := os.Getenv("GHAUTH_HOST"); v != "" {
		s.GitHubHost = v
	}
	if v := os.Getenv("GHAUTH_AUTH_URL"); v != "" {
		s.AuthURL = v
	}
}

// SplitScopes splits a comma or whitespace separated scope list, dropping empty entries.
func SplitScopes(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// SaveSettings writes s to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening settings file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(s); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
