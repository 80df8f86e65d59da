package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsOnMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Calendar.OpenHour)
	assert.Equal(t, 17, cfg.Calendar.CloseHour)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.Calendar.WorkingWeekdays)
	assert.Equal(t, 30, cfg.Calendar.SlotGranularityMinutes)
	assert.True(t, cfg.Reminders.Enabled)
	assert.Equal(t, 8, cfg.Reminders.DispatchHour)
	assert.Equal(t, 90, cfg.Booking.MaxAdvanceDays)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
calendar:
  open_hour: 8
  close_hour: 18
  working_weekdays: [1, 2, 3, 4, 5, 6]
  slot_granularity_minutes: 15
reminders:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Calendar.OpenHour)
	assert.Equal(t, 18, cfg.Calendar.CloseHour)
	assert.Len(t, cfg.Calendar.WorkingWeekdays, 6)
	assert.Equal(t, 15, cfg.Calendar.SlotGranularityMinutes)
	assert.False(t, cfg.Reminders.Enabled)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")
	path := writeConfig(t, `
redis:
  address: ${TEST_REDIS_ADDR}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBusinessCalendar(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cal, err := cfg.BusinessCalendar()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cal.SlotGranularity)
	assert.True(t, cal.IsWorkingDay(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.Local)))
	assert.False(t, cal.IsWorkingDay(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local)))
}

func TestBusinessCalendarRejectsBadWeekday(t *testing.T) {
	cfg := defaults()
	cfg.Calendar.WorkingWeekdays = []int{7}
	_, err := cfg.BusinessCalendar()
	assert.Error(t, err)
}

func TestBusinessCalendarRejectsInvertedHours(t *testing.T) {
	cfg := defaults()
	cfg.Calendar.OpenHour = 18
	cfg.Calendar.CloseHour = 9
	_, err := cfg.BusinessCalendar()
	assert.Error(t, err)
}

func TestDedupeTTL(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, time.Duration(0), cfg.DedupeTTL())
	cfg.Reminders.DedupeTTLHours = 72
	assert.Equal(t, 72*time.Hour, cfg.DedupeTTL())
}
