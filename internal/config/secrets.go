package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadSecrets loads sensitive configuration from environment or mounted files
func LoadSecrets(config *Config) error {
	if token := os.Getenv("UPSTREAM_TOKEN"); token != "" {
		config.Upstream.Token = token
	} else if tokenFile := os.Getenv("UPSTREAM_TOKEN_FILE"); tokenFile != "" {
		token, err := os.ReadFile(tokenFile)
		if err != nil {
			return fmt.Errorf("failed to read upstream token file: %w", err)
		}
		config.Upstream.Token = strings.TrimSpace(string(token))
	}

	if valkeyPassword := os.Getenv("VALKEY_PASSWORD"); valkeyPassword != "" {
		config.Cache.Password = valkeyPassword
	} else if passwordFile := os.Getenv("VALKEY_PASSWORD_FILE"); passwordFile != "" {
		password, err := os.ReadFile(passwordFile)
		if err != nil {
			return fmt.Errorf("failed to read Valkey password file: %w", err)
		}
		config.Cache.Password = strings.TrimSpace(string(password))
	}

	return nil
}
