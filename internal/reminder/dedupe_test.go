package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedupe(t *testing.T) {
	d := NewMemoryDedupe()
	ctx := context.Background()
	day := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.Local)

	claimed, err := d.MarkSent(ctx, "appt-1", day)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = d.MarkSent(ctx, "appt-1", day)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim for the same day loses")

	// Different day or different appointment claims independently.
	claimed, err = d.MarkSent(ctx, "appt-1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = d.MarkSent(ctx, "appt-2", day)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisDedupe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	d := NewRedisDedupe(client, 0)
	ctx := context.Background()
	day := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.Local)

	claimed, err := d.MarkSent(ctx, "appt-1", day)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = d.MarkSent(ctx, "appt-1", day)
	require.NoError(t, err)
	assert.False(t, claimed)

	// The claim expires after the TTL, so a later day's run can claim
	// again if the appointment was rescheduled to the same date.
	mr.FastForward(DefaultDedupeTTL + time.Minute)
	claimed, err = d.MarkSent(ctx, "appt-1", day)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestDedupeKey(t *testing.T) {
	day := time.Date(2026, time.March, 3, 15, 0, 0, 0, time.Local)
	assert.Equal(t, "reminder:appt-1:2026-03-03", dedupeKey("appt-1", day))
}
