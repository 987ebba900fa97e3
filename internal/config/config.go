// Package config loads the server configuration.
//
// A YAML file is decoded over Default(), so a file only needs the keys it
// changes. The result is checked against an embedded CUE schema, which
// reports the offending key path for every invalid value.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/entgraph/internal/queryir"
)

//go:embed schema.cue
var schemaSource string

// Config is the full server configuration. yaml and json tags must agree:
// yaml drives decoding, json drives the CUE encoding used for validation.
type Config struct {
	Listen           string `yaml:"listen" json:"listen"`
	DataDir          string `yaml:"data_dir" json:"data_dir"`
	DefaultNamespace string `yaml:"default_namespace" json:"default_namespace"`

	Log       LogConfig       `yaml:"log" json:"log"`
	CORS      CORSConfig      `yaml:"cors" json:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Query     QueryConfig     `yaml:"query" json:"query"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Traverse  TraverseConfig  `yaml:"traverse" json:"traverse"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // text | json
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// RateLimitConfig is the token bucket applied to every request.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps"` // 0 disables limiting
	Burst int     `yaml:"burst" json:"burst"`
}

// QueryConfig holds query compiler settings.
type QueryConfig struct {
	FieldPolicy string `yaml:"field_policy" json:"field_policy"` // drop | reject
}

// SearchConfig holds search scoring settings.
type SearchConfig struct {
	ExactBonus float64 `yaml:"exact_bonus" json:"exact_bonus"`
}

// TraverseConfig bounds traversals.
type TraverseConfig struct {
	MaxHops int `yaml:"max_hops" json:"max_hops"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:           "127.0.0.1:8080",
		DataDir:          "./data",
		DefaultNamespace: "default",
		Log:              LogConfig{Level: "info", Format: "text"},
		CORS:             CORSConfig{AllowedOrigins: []string{}},
		RateLimit:        RateLimitConfig{RPS: 0, Burst: 0},
		Query:            QueryConfig{FieldPolicy: "drop"},
		Search:           SearchConfig{ExactBonus: 0.5},
		Traverse:         TraverseConfig{MaxHops: 16},
	}
}

// Load reads and validates the file at path. An empty path yields the
// validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks c against the embedded CUE schema.
func (c Config) Validate() error {
	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = []string{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	return ParseLevel(c.Log.Level)
}

// ParseLevel maps a level name to a slog.Level; unknown names map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FieldPolicy returns the configured query field policy.
func (c Config) FieldPolicy() (queryir.FieldPolicy, error) {
	return queryir.ParsePolicy(c.Query.FieldPolicy)
}
