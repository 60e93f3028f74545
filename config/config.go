// Package config loads the roadwatch YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/dataset"
)

// Config is the whole configuration file. Every field is optional; missing
// fields keep their Default value.
type Config struct {
	Data   dataset.Sources `yaml:"data"`
	Charts chart.Config    `yaml:"charts"`
	// CrashSince is the earliest year offered on the crash page.
	CrashSince int    `yaml:"crash_since"`
	Server     Server `yaml:"server"`
	Fetch      Fetch  `yaml:"fetch"`
	Log        Log    `yaml:"log"`
}

// Fetch configures `roadwatch fetch`. Every data file is downloaded from
// BaseURL joined with the file's base name.
type Fetch struct {
	BaseURL string `yaml:"base_url"`
}

// Server configures `roadwatch serve`.
type Server struct {
	Addr string `yaml:"addr"`
	// MaxSessions bounds the dashboards kept in memory; the oldest is
	// evicted first.
	MaxSessions int `yaml:"max_sessions"`
}

// Log configures the slog handler.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is given. Data paths
// point at the published dataset file names in ./data.
func Default() Config {
	return Config{
		Data: dataset.Sources{
			DrugTests:     "data/total-drug-test.csv",
			PositiveDrug:  "data/positive-drug.csv",
			SeatbeltFines: "data/no-seatbelts.csv",
			DrugCrash:     "data/drug-consequence.csv",
			SeatbeltCrash: "data/no-seatbelts-consequence.csv",
			Boundaries:    "data/aus-states.geojson",
		},
		Charts:     chart.DefaultConfig(),
		CrashSince: dataset.DefaultCrashSince,
		Server:     Server{Addr: ":8080", MaxSessions: 256},
		Log:        Log{Level: "info"},
	}
}

// Load reads the file at path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	for name, r := range map[string]chart.YearRange{
		"charts.drug_years":  c.Charts.DrugYears,
		"charts.crash_years": c.Charts.CrashYears,
	} {
		if r.From > r.To {
			errs = append(errs, fmt.Errorf("%s: from %d is after to %d", name, r.From, r.To))
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Fetch.BaseURL != "" {
		if u, err := url.Parse(c.Fetch.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("fetch.base_url: %q is not an absolute URL", c.Fetch.BaseURL))
		}
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions must not be negative"))
	}
	return errors.Join(errs...)
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLevel maps a level name onto slog's levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
}

// Logger builds the logger described by l, writing to w.
func (l Log) Logger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(l.Level)
	opts := &slog.HandlerOptions{Level: level}
	if l.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
