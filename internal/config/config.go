// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the bot configuration from a YAML file layered under
// command-line flags.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/trust"
)

// Error codes for configuration failures.
const (
	CodeInvalid         = "CONFIG_INVALID"
	CodeTemplateCreated = "CONFIG_TEMPLATE_CREATED"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults.
const (
	DefaultPath       = "config.yml"
	DefaultPrefix     = "."
	DefaultDriver     = DriverSQLite
	DefaultSQLitePath = "holobot.sqlite"
	DefaultLogFormat  = "json"
	DefaultWorkers    = 8

	// TemplateToken is the placeholder written into a generated config file.
	TemplateToken = "your bot token"
)

// UserID is a user id as written in the config file: a YAML integer or a
// decimal string.
type UserID string

// Database selects the member store.
type Database struct {
	Driver string `koanf:"driver" yaml:"driver" json:"driver,omitempty" jsonschema:"enum=sqlite,enum=postgres" jsonschema_description:"Member store backend"`
	URL    string `koanf:"url" yaml:"url" json:"url,omitempty" jsonschema_description:"SQLite file path or PostgreSQL connection URL"`
}

// Config is the bot configuration.
type Config struct {
	Token            string              `koanf:"token" yaml:"token" json:"token,omitempty" jsonschema_description:"Platform bot token"`
	Prefix           string              `koanf:"prefix" yaml:"prefix" json:"prefix,omitempty" jsonschema:"minLength=1,maxLength=8" jsonschema_description:"Command prefix"`
	BotUserID        UserID              `koanf:"bot_user_id" yaml:"bot_user_id,omitempty" json:"bot_user_id,omitempty" jsonschema_description:"The bot's own user id; its messages are ignored"`
	Permission       map[string][]UserID `koanf:"permission" yaml:"permission" json:"permission,omitempty" jsonschema_description:"Global trust levels: level name to user ids"`
	Database         Database            `koanf:"database" yaml:"database" json:"database,omitempty"`
	MetricsAddr      string              `koanf:"metrics_addr" yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty" jsonschema_description:"Metrics and health listen address; empty disables"`
	LogFormat        string              `koanf:"log_format" yaml:"log_format" json:"log_format,omitempty" jsonschema:"enum=json,enum=text"`
	Workers          int                 `koanf:"workers" yaml:"workers" json:"workers,omitempty" jsonschema:"minimum=1,maximum=1024" jsonschema_description:"Events processed concurrently"`
	DisabledCommands []string            `koanf:"disabled_commands" yaml:"disabled_commands,omitempty" json:"disabled_commands,omitempty" jsonschema_description:"Glob patterns of built-in commands not to register"`

	path string
}

// Default returns the configuration used for keys the file and flags leave unset.
func Default() *Config {
	return &Config{
		Prefix:     DefaultPrefix,
		Permission: map[string][]UserID{},
		Database:   Database{Driver: DefaultDriver, URL: DefaultSQLitePath},
		LogFormat:  DefaultLogFormat,
		Workers:    DefaultWorkers,
	}
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// RegisterFlags adds the flags that override file keys.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("token", "", "platform bot token")
	fs.String("prefix", d.Prefix, "command prefix")
	fs.String("database-driver", d.Database.Driver, "member store backend (sqlite or postgres)")
	fs.String("database-url", d.Database.URL, "SQLite file path or PostgreSQL URL")
	fs.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.Int("workers", d.Workers, "events processed concurrently")
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	if rest, ok := strings.CutPrefix(name, "database-"); ok {
		return "database." + rest
	}
	return strings.ReplaceAll(name, "-", "_")
}

var flagKeys = map[string]bool{
	"token": true, "prefix": true, "database.driver": true, "database.url": true,
	"metrics_addr": true, "log_format": true, "workers": true,
}

// Load reads the configuration at path and applies flags on top. A missing file
// is replaced by a template and reported with CONFIG_TEMPLATE_CREATED. The file is
// validated against the configuration schema before it is decoded.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if errors.Is(err, fs.ErrNotExist) {
		if werr := WriteTemplate(path); werr != nil {
			return nil, werr
		}
		return nil, oops.Code(CodeTemplateCreated).
			With("path", path).
			Errorf("there is no configuration file %q; generated a template instead, fill it out and retry", path)
	}
	if err != nil {
		return nil, oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}

	if err := ValidateYAML(raw); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "parse config")
	}
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := flagKey(f.Name)
			if !flagKeys[key] {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "apply flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "decode config")
	}
	cfg.path = path
	if cfg.Database.Driver == DriverPostgres && cfg.Database.URL == DefaultSQLitePath {
		cfg.Database.URL = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return cfg, nil
}

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	if c.Prefix == "" || strings.ContainsAny(c.Prefix, " \t\r\n") {
		return oops.Code(CodeInvalid).With("key", "prefix").Errorf("prefix must be non-empty and contain no whitespace")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return oops.Code(CodeInvalid).
			With("key", "database.driver").
			Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.URL == "" {
		return oops.Code(CodeInvalid).With("key", "database.url").Errorf("database.url is required for %s", c.Database.Driver)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code(CodeInvalid).With("key", "log_format").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.Workers < 1 {
		return oops.Code(CodeInvalid).With("key", "workers").Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.BotUserID != "" {
		if _, err := directory.ParseID(string(c.BotUserID)); err != nil {
			return oops.Code(CodeInvalid).With("key", "bot_user_id").Wrapf(err, "invalid bot_user_id")
		}
	}
	if _, err := c.TrustSeeds(); err != nil {
		return err
	}
	if _, err := c.DisabledMatcher(); err != nil {
		return err
	}
	return nil
}

// RequireToken fails when the token is missing or still the template placeholder.
func (c *Config) RequireToken() error {
	if c.Token == "" || c.Token == TemplateToken {
		return oops.Code(CodeInvalid).With("key", "token").Errorf("token is required; set it in %s or pass --token", c.path)
	}
	return nil
}

// SelfID returns the bot's own user id, or zero when not configured.
func (c *Config) SelfID() directory.ID {
	id, err := directory.ParseID(string(c.BotUserID))
	if err != nil {
		return 0
	}
	return id
}

// TrustSeeds parses the permission map into global trust levels. Keys are level
// names or ordinals. An id listed under two levels fails with CONFIG_INVALID.
func (c *Config) TrustSeeds() (map[trust.Level][]directory.ID, error) {
	seeds := make(map[trust.Level][]directory.ID, len(c.Permission))
	seen := make(map[directory.ID]trust.Level)
	for name, ids := range c.Permission {
		level, err := trust.ParseLevel(name)
		if err != nil {
			return nil, oops.Code(CodeInvalid).
				With("key", "permission."+name).
				Errorf("unknown trust level %q", name)
		}
		for _, raw := range ids {
			id, err := directory.ParseID(string(raw))
			if err != nil {
				return nil, oops.Code(CodeInvalid).
					With("key", "permission."+name).
					With("id", string(raw)).
					Errorf("invalid user id %q under %s", raw, name)
			}
			if prev, ok := seen[id]; ok {
				return nil, oops.Code(CodeInvalid).
					With("key", "permission").
					With("id", uint64(id)).
					Errorf("user %d is listed under both %s and %s", id, prev, level)
			}
			seen[id] = level
			seeds[level] = append(seeds[level], id)
		}
	}
	return seeds, nil
}

// DisabledMatcher compiles disabled_commands into a predicate.
func (c *Config) DisabledMatcher() (func(command string) bool, error) {
	globs := make([]glob.Glob, 0, len(c.DisabledCommands))
	for _, pattern := range c.DisabledCommands {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code(CodeInvalid).
				With("key", "disabled_commands").
				With("pattern", pattern).
				Wrapf(err, "invalid command pattern %q", pattern)
		}
		globs = append(globs, g)
	}
	return func(command string) bool {
		for _, g := range globs {
			if g.Match(command) {
				return true
			}
		}
		return false
	}, nil
}
