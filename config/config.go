package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"

	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/layout"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything needed to build and display one lineage graph.
// Configuration can come from a YAML file or environment variables, and
// environment variables always override YAML values. Connection strings
// carry credentials and only come from the environment.
type Config struct {
	Source Connection `yaml:"source" env-prefix:"LINEAGE_SOURCE_"`
	Target Connection `yaml:"target" env-prefix:"LINEAGE_TARGET_"`

	// Selected lists source tables as "schema.name" or bare "name".
	Selected []string `yaml:"selected" env:"LINEAGE_SELECTED" env-separator:","`

	// Disabled turns lineage off; the graph stays empty.
	Disabled bool `yaml:"disabled" env:"LINEAGE_DISABLED" env-default:"false"`

	// LastUpdated stamps nodes and edges (RFC 3339). Empty means now.
	LastUpdated string `yaml:"last_updated" env:"LINEAGE_LAST_UPDATED" env-default:""`

	LogLevel string `yaml:"log_level" env:"LINEAGE_LOG_LEVEL" env-default:"info"`

	Layout LayoutConfig `yaml:"layout"`
}

// Connection says where one side's schema snapshot comes from: a live
// database (DSN) or a snapshot file.
type Connection struct {
	Type     string `yaml:"type" env:"TYPE" env-default:""`
	Schema   string `yaml:"schema" env:"SCHEMA" env-default:""`
	Snapshot string `yaml:"snapshot" env:"SNAPSHOT" env-default:""`
	DSN      string `yaml:"-" env:"DSN"` // Secret - not in YAML
}

// LayoutConfig mirrors layout.Options.
type LayoutConfig struct {
	NodeWidth  float64 `yaml:"node_width" env:"LINEAGE_NODE_WIDTH" env-default:"304"`
	NodeHeight float64 `yaml:"node_height" env:"LINEAGE_NODE_HEIGHT" env-default:"124"`
	RankSep    float64 `yaml:"rank_sep" env:"LINEAGE_RANK_SEP" env-default:"160"`
	NodeSep    float64 `yaml:"node_sep" env:"LINEAGE_NODE_SEP" env-default:"64"`
	Margin     float64 `yaml:"margin" env:"LINEAGE_MARGIN" env-default:"24"`
	Iterations int     `yaml:"iterations" env:"LINEAGE_ITERATIONS" env-default:"4"`
	Direction  string  `yaml:"direction" env:"LINEAGE_DIRECTION" env-default:"LR"`
}

func (l LayoutConfig) Options() layout.Options {
	return layout.Options{
		NodeWidth:  l.NodeWidth,
		NodeHeight: l.NodeHeight,
		RankSep:    l.RankSep,
		NodeSep:    l.NodeSep,
		Margin:     l.Margin,
		Iterations: l.Iterations,
		Direction:  layout.Direction(strings.ToUpper(strings.TrimSpace(l.Direction))),
	}
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Selected = cleanSelection(cfg.Selected)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func cleanSelection(selected []string) []string {
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every problem at once, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string

	for _, side := range []struct {
		name string
		conn Connection
	}{{"source", c.Source}, {"target", c.Target}} {
		if err := side.conn.validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", side.name, err))
		}
	}

	switch layout.Direction(strings.ToUpper(strings.TrimSpace(c.Layout.Direction))) {
	case layout.LeftToRight, layout.TopToBottom, "":
	default:
		problems = append(problems, fmt.Sprintf("layout: unknown direction %q (use LR or TB)", c.Layout.Direction))
	}
	if c.Layout.NodeWidth < 0 || c.Layout.NodeHeight < 0 || c.Layout.RankSep < 0 ||
		c.Layout.NodeSep < 0 || c.Layout.Margin < 0 || c.Layout.Iterations < 0 {
		problems = append(problems, "layout: sizes and iterations must not be negative")
	}

	if _, err := c.Timestamp(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.Level(); err != nil {
		problems = append(problems, fmt.Sprintf("log_level: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Connection) validate() error {
	if c.DSN == "" && c.Snapshot == "" {
		return errors.New("either a DSN or a snapshot file is required")
	}
	if c.DSN != "" {
		switch database.ParseType(c.Type) {
		case database.Postgres, database.MySQL, database.SQLite, database.ClickHouse:
		default:
			return fmt.Errorf("unsupported database type %q", c.Type)
		}
	}
	return nil
}

// Timestamp parses LastUpdated. It returns nil when unset.
func (c *Config) Timestamp() (*time.Time, error) {
	if strings.TrimSpace(c.LastUpdated) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.LastUpdated))
	if err != nil {
		return nil, fmt.Errorf("last_updated: %w", err)
	}
	return &t, nil
}

// Level parses LogLevel for the logger.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(c.LogLevel)
}
