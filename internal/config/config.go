// Package config loads service configuration from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/almonzer-fadl/teramotors/internal/schedule"
)

// Config is the top-level service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Booking    BookingConfig    `yaml:"booking"`
	Reminders  RemindersConfig  `yaml:"reminders"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MonitoringConfig struct {
	HealthCheckPort   int  `yaml:"health_check_port"`
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// CalendarConfig describes the shop's business hours. WorkingWeekdays
// uses time.Weekday numbering (0 = Sunday).
type CalendarConfig struct {
	OpenHour               int   `yaml:"open_hour"`
	CloseHour              int   `yaml:"close_hour"`
	WorkingWeekdays        []int `yaml:"working_weekdays"`
	SlotGranularityMinutes int   `yaml:"slot_granularity_minutes"`
}

// BookingConfig bounds how far ahead appointments may be booked.
// Zero disables the bound.
type BookingConfig struct {
	MaxAdvanceDays int `yaml:"max_advance_days"`
}

type RemindersConfig struct {
	Enabled            bool    `yaml:"enabled"`
	DispatchHour       int     `yaml:"dispatch_hour"`
	WebhookURL         string  `yaml:"webhook_url"`
	RatePerSecond      float64 `yaml:"rate_per_second"`
	Burst              int     `yaml:"burst"`
	MaxConcurrentSends int     `yaml:"max_concurrent_sends"`
	DedupeTTLHours     int     `yaml:"dedupe_ttl_hours"`
}

// Load reads the config file at path, expanding ${VAR} references.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "teramotors.db"},
		Monitoring: MonitoringConfig{
			HealthCheckPort:   8090,
			PrometheusEnabled: true,
			PrometheusPort:    9090,
		},
		Calendar: CalendarConfig{
			OpenHour:               9,
			CloseHour:              17,
			WorkingWeekdays:        []int{1, 2, 3, 4, 5},
			SlotGranularityMinutes: 30,
		},
		Booking: BookingConfig{MaxAdvanceDays: 90},
		Reminders: RemindersConfig{
			Enabled:      true,
			DispatchHour: 8,
		},
	}
}

// BusinessCalendar builds the validated calendar from config.
func (c *Config) BusinessCalendar() (schedule.Calendar, error) {
	weekdays := make([]time.Weekday, len(c.Calendar.WorkingWeekdays))
	for i, d := range c.Calendar.WorkingWeekdays {
		if d < 0 || d > 6 {
			return schedule.Calendar{}, fmt.Errorf("working_weekdays: %d is not a weekday", d)
		}
		weekdays[i] = time.Weekday(d)
	}
	return schedule.NewCalendar(
		c.Calendar.OpenHour,
		c.Calendar.CloseHour,
		weekdays,
		time.Duration(c.Calendar.SlotGranularityMinutes)*time.Minute,
	)
}

// DedupeTTL returns the configured claim TTL, or zero when unset so
// the dedupe store applies its own default.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.Reminders.DedupeTTLHours) * time.Hour
}
