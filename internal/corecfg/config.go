// Package corecfg loads the state store's configuration: exactly the four
// inputs the external interface names (database URL, user, password, name)
// and nothing else — no other runtime switch affects core semantics.
package corecfg

import (
	"fmt"
	"os"
	"strings"
)

// EnvConfig reads environment variables under an optional prefix.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a loader that reads "<prefix>_<KEY>" when prefix is
// non-empty, or "<KEY>" otherwise.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// GetString returns the value for key, or defaultValue if unset/empty.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		return v
	}
	return defaultValue
}

// MustGetString returns the value for key or panics if unset. Used only at
// process startup, never inside a request path.
func (ec *EnvConfig) MustGetString(key string) string {
	fullKey := ec.buildKey(key)
	v := os.Getenv(fullKey)
	if v == "" {
		panic(fmt.Sprintf("corecfg: required environment variable %s not set", fullKey))
	}
	return v
}

// CoreConfig is the state store's entire configuration surface.
type CoreConfig struct {
	URL      string // database URL
	User     string // database user
	Password string // database password
	Database string // database/graph name
}

// LoadCoreConfig loads CoreConfig from the environment under prefix (e.g.
// "ALCHEMICORE"), applying development-friendly defaults for everything but
// Password.
func LoadCoreConfig(prefix string) CoreConfig {
	env := NewEnvConfig(prefix)
	return CoreConfig{
		URL:      env.GetString("DB_URL", "neo4j://localhost:7687"),
		User:     env.GetString("DB_USER", "neo4j"),
		Password: env.GetString("DB_PASSWORD", ""),
		Database: env.GetString("DB_NAME", "neo4j"),
	}
}

// Validator accumulates configuration validation errors.
type Validator struct {
	errors []string
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// RequireString records an error if value is empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequireURL records an error if value is empty or not a neo4j(+s/+ssc) or bolt(+s/+ssc) URL.
func (v *Validator) RequireURL(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, scheme := range []string{"neo4j://", "neo4j+s://", "neo4j+ssc://", "bolt://", "bolt+s://", "bolt+ssc://"} {
		if strings.HasPrefix(value, scheme) {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be a neo4j:// or bolt:// URL", field))
}

// IsValid reports whether no validation errors have been recorded.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Validate returns a single combined error, or nil if IsValid.
func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("corecfg: configuration validation failed: %s", strings.Join(v.errors, "; "))
}

// Validate checks that c's required fields are present and well-formed.
func (c CoreConfig) Validate() error {
	v := NewValidator()
	v.RequireURL("URL", c.URL)
	v.RequireString("User", c.User)
	v.RequireString("Database", c.Database)
	return v.Validate()
}
