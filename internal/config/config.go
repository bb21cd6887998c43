package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/danpilch/railscout/internal/telemetry"
)

// Source ids the binary knows how to build.
const (
	SourceBahn         = "bahn"
	SourceBahnInt      = "bahn-int"
	SourceTrainline    = "trainline"
	SourceBahnExpert   = "bahn-expert"
	SourceTrainlineWeb = "trainline-web"
)

var knownSources = map[string]bool{
	SourceBahn:         true,
	SourceBahnInt:      true,
	SourceTrainline:    true,
	SourceBahnExpert:   true,
	SourceTrainlineWeb: true,
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AcquisitionConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	MaxRetries     *int          `yaml:"max_retries"`
	DefaultSources []string      `yaml:"default_sources"`
}

// Retries is how often a failed acquisition is retried; one unless set.
func (a AcquisitionConfig) Retries() int {
	if a.MaxRetries == nil {
		return 1
	}
	return *a.MaxRetries
}

// SourceConfig tunes one source. Request sources use BaseURL, UserAgent,
// Timeout and RatePerSecond; browser sources use Headless and ChromePath.
type SourceConfig struct {
	Disabled      bool          `yaml:"disabled"`
	BaseURL       string        `yaml:"base_url"`
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Headless      *bool         `yaml:"headless"`
	ChromePath    string        `yaml:"chrome_path"`
}

// IsHeadless defaults to true.
func (s SourceConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}

type StationConfig struct {
	Name    string            `yaml:"name"`
	Aliases []string          `yaml:"aliases"`
	Refs    map[string]string `yaml:"refs"`
}

// ProbeRoute is a canary query run against one source.
type ProbeRoute struct {
	Source      string   `yaml:"source"`
	Origin      string   `yaml:"origin"`
	Destination string   `yaml:"destination"`
	DaysAhead   int      `yaml:"days_ahead"`
	Days        []string `yaml:"days"` // e.g., ["monday", "wednesday", "friday"]
}

// IsActiveDay returns true if the given weekday is in the configured days list.
// If no days are configured, returns true (runs every day).
func (p ProbeRoute) IsActiveDay(weekday time.Weekday) bool {
	if len(p.Days) == 0 {
		return true
	}
	dayName := strings.ToLower(weekday.String())
	for _, d := range p.Days {
		if strings.ToLower(d) == dayName {
			return true
		}
	}
	return false
}

type ProbeConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Routes   []ProbeRoute  `yaml:"routes"`
}

// EmailConfig sends probe alerts over SMTP. The password is read from the
// environment, never from the file.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

func (e EmailConfig) Enabled() bool {
	return e.Host != ""
}

type NotifyConfig struct {
	Email EmailConfig `yaml:"email"`
}

type Config struct {
	Timezone    string                  `yaml:"timezone"`
	Server      ServerConfig            `yaml:"server"`
	Acquisition AcquisitionConfig       `yaml:"acquisition"`
	Sources     map[string]SourceConfig `yaml:"sources"`
	Stations    []StationConfig         `yaml:"stations"`
	Probe       ProbeConfig             `yaml:"probe"`
	Notify      NotifyConfig            `yaml:"notify"`
	Telemetry   telemetry.Config        `yaml:"telemetry"`

	location *time.Location
}

var (
	defaultServer = ServerConfig{
		Addr:           ":8080",
		RequestTimeout: 2 * time.Minute,
	}
	defaultAcquisition = AcquisitionConfig{
		AttemptTimeout: 45 * time.Second,
	}
	defaultProbe = ProbeConfig{
		Interval: 30 * time.Minute,
	}
	defaultEmail = EmailConfig{
		Port: 587,
	}
)

// Default is the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.applyDefaults(); err != nil {
		panic(err)
	}
	_ = cfg.Validate()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if err := mergo.Merge(&c.Server, defaultServer); err != nil {
		return err
	}
	if err := mergo.Merge(&c.Acquisition, defaultAcquisition); err != nil {
		return err
	}
	if err := mergo.Merge(&c.Probe, defaultProbe); err != nil {
		return err
	}
	if err := mergo.Merge(&c.Notify.Email, defaultEmail); err != nil {
		return err
	}
	if c.Acquisition.MaxRetries == nil {
		retries := 1
		c.Acquisition.MaxRetries = &retries
	}
	if len(c.Sources) == 0 {
		c.Sources = map[string]SourceConfig{
			SourceBahn:      {},
			SourceBahnInt:   {},
			SourceTrainline: {},
		}
	}
	if len(c.Acquisition.DefaultSources) == 0 {
		if _, ok := c.Sources[SourceBahnInt]; ok {
			c.Acquisition.DefaultSources = []string{SourceBahnInt}
		} else {
			c.Acquisition.DefaultSources = c.EnabledSources()
		}
	}
	for i := range c.Probe.Routes {
		if c.Probe.Routes[i].DaysAhead == 0 {
			c.Probe.Routes[i].DaysAhead = 7
		}
	}
	return nil
}

func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	c.location = loc

	if c.Server.Addr == "" {
		return fmt.Errorf("server: addr is required")
	}
	if c.Acquisition.AttemptTimeout <= 0 {
		return fmt.Errorf("acquisition: attempt_timeout must be positive")
	}
	if c.Acquisition.Retries() < 0 || c.Acquisition.Retries() > 3 {
		return fmt.Errorf("acquisition: max_retries must be between 0 and 3")
	}

	for id, src := range c.Sources {
		if !knownSources[id] {
			return fmt.Errorf("sources: unknown source %q", id)
		}
		if src.RatePerSecond < 0 {
			return fmt.Errorf("sources.%s: rate_per_second must not be negative", id)
		}
	}
	enabled := c.enabled()
	if len(enabled) == 0 {
		return fmt.Errorf("sources: at least one source must be enabled")
	}
	for _, id := range c.Acquisition.DefaultSources {
		if !enabled[id] {
			return fmt.Errorf("acquisition: default source %q is not enabled", id)
		}
	}

	for i, st := range c.Stations {
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("stations[%d]: name is required", i)
		}
	}

	if c.Probe.Enabled {
		if c.Probe.Interval < time.Minute {
			return fmt.Errorf("probe: interval must be at least 1m")
		}
		if len(c.Probe.Routes) == 0 {
			return fmt.Errorf("probe: at least one route is required")
		}
		for i, r := range c.Probe.Routes {
			if r.Origin == "" || r.Destination == "" {
				return fmt.Errorf("probe.routes[%d]: origin and destination are required", i)
			}
			if !enabled[r.Source] {
				return fmt.Errorf("probe.routes[%d]: source %q is not enabled", i, r.Source)
			}
			if r.DaysAhead < 0 {
				return fmt.Errorf("probe.routes[%d]: days_ahead must not be negative", i)
			}
		}
	}

	if c.Notify.Email.Enabled() {
		if c.Notify.Email.From == "" || len(c.Notify.Email.To) == 0 {
			return fmt.Errorf("notify.email: from and to are required")
		}
		if c.Notify.Email.Port <= 0 {
			return fmt.Errorf("notify.email: port must be positive")
		}
	}

	return nil
}

func (c *Config) enabled() map[string]bool {
	out := make(map[string]bool)
	for id, src := range c.Sources {
		if !src.Disabled {
			out[id] = true
		}
	}
	return out
}

// EnabledSources returns the ids of every enabled source in sorted order.
func (c *Config) EnabledSources() []string {
	var ids []string
	for id := range c.enabled() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Location is the timezone caller supplied dates are read in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
