package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hengadev/errsx"

	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/cryptox"
	"github.com/vormiaphp/vormiaquery/internal/timex"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultAuthEndpoint   = "/api/login"
	DefaultLogoutEndpoint = "/api/logout"
	Production            = "production"
)

// Config holds every client setting. The zero value is not usable; start
// from Default or LoadDefaults.
type Config struct {
	BaseURL         string            `json:"base_url" yaml:"base_url"`
	AuthTokenKey    string            `json:"auth_token_key" yaml:"auth_token_key"`
	WithCredentials bool              `json:"with_credentials" yaml:"with_credentials"`
	Timeout         time.Duration     `json:"-" yaml:"-"`
	Headers         map[string]string `json:"headers" yaml:"headers"`

	SensitiveKeys       []string `json:"sensitive_keys" yaml:"sensitive_keys"`
	FilterSensitiveData bool     `json:"filter_sensitive_data" yaml:"filter_sensitive_data"`
	IncludeDebugInfo    bool     `json:"include_debug_info" yaml:"include_debug_info"`

	EncryptionKey string `json:"encryption_key" yaml:"encryption_key"`
	PublicKey     string `json:"public_key" yaml:"public_key"`
	PrivateKey    string `json:"private_key" yaml:"private_key"`

	Environment    string `json:"environment" yaml:"environment"`
	AuthEndpoint   string `json:"auth_endpoint" yaml:"auth_endpoint"`
	LogoutEndpoint string `json:"logout_endpoint" yaml:"logout_endpoint"`
	StorePath      string `json:"store_path" yaml:"store_path"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
}

// Default returns a Config populated by LoadDefaults.
func Default() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func (c *Config) LoadDefaults() {
	c.AuthTokenKey = common.DefaultAuthTokenKey
	c.Timeout = DefaultTimeout
	c.FilterSensitiveData = true
	c.IncludeDebugInfo = true
	c.AuthEndpoint = DefaultAuthEndpoint
	c.LogoutEndpoint = DefaultLogoutEndpoint
	c.LogLevel = "info"
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, Production)
}

// SetProduction switches the environment and drops debug info in
// production.
func (c *Config) SetProduction(production bool) {
	if production {
		c.Environment = Production
		c.IncludeDebugInfo = false
		return
	}
	if c.IsProduction() {
		c.Environment = ""
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Headers != nil {
		cp.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			cp.Headers[k] = v
		}
	}
	cp.SensitiveKeys = append([]string(nil), c.SensitiveKeys...)
	return &cp
}

// TimeoutMs returns Timeout in milliseconds.
func (c *Config) TimeoutMs() int64 {
	return c.Timeout.Milliseconds()
}

// Validate reports every invalid field at once. The error wraps
// common.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs errsx.Map

	if c.Timeout <= 0 {
		errs.Set("timeout", "must be positive")
	}
	if strings.TrimSpace(c.AuthTokenKey) == "" {
		errs.Set("auth_token_key", "must not be empty")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			errs.Set("base_url", err)
		} else if u.Scheme == "" || u.Host == "" {
			errs.Set("base_url", "must be an absolute URL")
		}
	}
	if c.PublicKey != "" {
		if _, err := cryptox.ParsePublicKey(c.PublicKey); err != nil {
			errs.Set("public_key", err)
		}
	}
	if c.PrivateKey != "" {
		if _, err := cryptox.ParsePrivateKey(c.PrivateKey); err != nil {
			errs.Set("private_key", err)
		}
	}

	if errs.IsEmpty() {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errs.AsError())
}

// HasEncryption reports whether any payload key is configured.
func (c *Config) HasEncryption() bool {
	return c.PublicKey != "" || c.PrivateKey != "" || c.EncryptionKey != ""
}

// fileConfig mirrors Config for file decoding. Pointer fields distinguish
// "absent" from the zero value so a file only overrides what it sets.
type fileConfig struct {
	BaseURL             *string           `json:"base_url" yaml:"base_url"`
	AuthTokenKey        *string           `json:"auth_token_key" yaml:"auth_token_key"`
	WithCredentials     *bool             `json:"with_credentials" yaml:"with_credentials"`
	Timeout             *timex.Duration   `json:"timeout" yaml:"timeout"`
	Headers             map[string]string `json:"headers" yaml:"headers"`
	SensitiveKeys       []string          `json:"sensitive_keys" yaml:"sensitive_keys"`
	FilterSensitiveData *bool             `json:"filter_sensitive_data" yaml:"filter_sensitive_data"`
	IncludeDebugInfo    *bool             `json:"include_debug_info" yaml:"include_debug_info"`
	EncryptionKey       *string           `json:"encryption_key" yaml:"encryption_key"`
	PublicKey           *string           `json:"public_key" yaml:"public_key"`
	PrivateKey          *string           `json:"private_key" yaml:"private_key"`
	Environment         *string           `json:"environment" yaml:"environment"`
	AuthEndpoint        *string           `json:"auth_endpoint" yaml:"auth_endpoint"`
	LogoutEndpoint      *string           `json:"logout_endpoint" yaml:"logout_endpoint"`
	StorePath           *string           `json:"store_path" yaml:"store_path"`
	LogLevel            *string           `json:"log_level" yaml:"log_level"`
}

func (fc *fileConfig) apply(c *Config) {
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.AuthTokenKey, fc.AuthTokenKey)
	if fc.WithCredentials != nil {
		c.WithCredentials = *fc.WithCredentials
	}
	if fc.Timeout != nil {
		c.Timeout = fc.Timeout.Duration
	}
	if fc.Headers != nil {
		if c.Headers == nil {
			c.Headers = map[string]string{}
		}
		for k, v := range fc.Headers {
			c.Headers[k] = v
		}
	}
	c.SensitiveKeys = append(c.SensitiveKeys, fc.SensitiveKeys...)
	if fc.FilterSensitiveData != nil {
		c.FilterSensitiveData = *fc.FilterSensitiveData
	}
	if fc.Environment != nil {
		c.SetProduction(strings.EqualFold(*fc.Environment, Production))
		c.Environment = *fc.Environment
	}
	if fc.IncludeDebugInfo != nil {
		c.IncludeDebugInfo = *fc.IncludeDebugInfo
	}
	setString(&c.EncryptionKey, fc.EncryptionKey)
	setString(&c.PublicKey, fc.PublicKey)
	setString(&c.PrivateKey, fc.PrivateKey)
	setString(&c.AuthEndpoint, fc.AuthEndpoint)
	setString(&c.LogoutEndpoint, fc.LogoutEndpoint)
	setString(&c.StorePath, fc.StorePath)
	setString(&c.LogLevel, fc.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
