package chrono

import (
	"errors"
	"testing"
	"time"

	"rosteretl/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestValidateSpec(t *testing.T) {
	require.NoError(t, ValidateSpec("*/5 * * * *"))
	require.NoError(t, ValidateSpec("@hourly"))
	require.NoError(t, ValidateSpec("@every 30s"))
	require.Error(t, ValidateSpec("every five minutes"))
	require.Error(t, ValidateSpec("61 * * * *"))
}

func TestCronLogger(t *testing.T) {
	tel := telemetry.NewRecorder()
	logger := cronLogger{tel: tel}

	logger.Info("skip")
	require.Len(t, tel.Warnings(), 1)
	require.Equal(t, "cron.skip", tel.Warnings()[0].ID)

	logger.Info("wake", "now", time.Now())
	require.Len(t, tel.Warnings(), 1)

	logger.Error(errors.New("boom"), "panic", "stack", "...")
	require.Len(t, tel.Broken(), 1)
}

func TestStandardCronNext(t *testing.T) {
	c := NewStandardCron(telemetry.NewRecorder(), time.UTC)
	require.True(t, c.Next().IsZero())

	require.NoError(t, c.Cron("@hourly", func() {}))
	require.Error(t, c.Cron("nope", func() {}))

	c.Start()
	defer c.Stop()
	require.Eventually(t, func() bool {
		return !c.Next().IsZero()
	}, time.Second, 10*time.Millisecond)
	require.True(t, c.Next().After(time.Now()))
}
