package admission

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of an admission policy file. Durations are
// strings in time.ParseDuration syntax, the base secret is base64.
type fileConfig struct {
	SignatureLabel     string   `yaml:"signature_label"`
	RequiredComponents []string `yaml:"required_components"`
	RequireCreated     bool     `yaml:"require_created"`
	RequireExpires     bool     `yaml:"require_expires"`
	RequireNonce       bool     `yaml:"require_nonce"`
	MaxAge             string   `yaml:"max_age"`
	ClockSkew          string   `yaml:"clock_skew"`
	RequireDigest      bool     `yaml:"require_digest"`
	AccountBaseSecret  string   `yaml:"account_base_secret"`
	BindingHeader      string   `yaml:"binding_header"`
	CorrelationHeader  string   `yaml:"correlation_header"`
}

// LoadConfig reads an admission policy from a YAML file. Hooks are not
// part of the file format and stay zero; callers set them on the returned
// Config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading policy file: %w", err)
	}

	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parsing policy file: %w", err)
	}

	cfg := Config{
		SignatureLabel:     file.SignatureLabel,
		RequiredComponents: file.RequiredComponents,
		RequireCreated:     file.RequireCreated,
		RequireExpires:     file.RequireExpires,
		RequireNonce:       file.RequireNonce,
		RequireDigest:      file.RequireDigest,
		BindingHeader:      file.BindingHeader,
		CorrelationHeader:  file.CorrelationHeader,
	}

	if file.MaxAge != "" {
		maxAge, err := time.ParseDuration(file.MaxAge)
		if err != nil {
			return Config{}, fmt.Errorf("max_age: %w", err)
		}

		cfg.MaxAge = maxAge
	}

	if file.ClockSkew != "" {
		skew, err := time.ParseDuration(file.ClockSkew)
		if err != nil {
			return Config{}, fmt.Errorf("clock_skew: %w", err)
		}

		cfg.ClockSkew = skew
	}

	if file.AccountBaseSecret != "" {
		secret, err := base64.StdEncoding.DecodeString(file.AccountBaseSecret)
		if err != nil {
			return Config{}, fmt.Errorf("account_base_secret: %w", err)
		}

		cfg.AccountBaseSecret = secret
	}

	return cfg, nil
}
