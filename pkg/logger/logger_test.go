package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
)

func TestNew(t *testing.T) {
	log, err := New(&config.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	_, err = New(&config.LoggingConfig{Level: "nope", Output: "stderr"})
	require.Error(t, err)
}

func TestWithComponent(t *testing.T) {
	log, err := New(&config.LoggingConfig{Level: "info", Output: "stderr"})
	require.NoError(t, err)

	entry := WithComponent(log, "planner")
	assert.Equal(t, "planner", entry.Data["component"])
}

func TestCustomTextFormatterRendersFields(t *testing.T) {
	f := &CustomTextFormatter{
		TextFormatter: logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05"},
	}

	log := logrus.New()
	entry := log.WithField("table", "AAPL_1d")
	entry.Level = logrus.InfoLevel
	entry.Message = "Series synced"

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "INFO")
	assert.Contains(t, string(out), "Series synced")
	assert.Contains(t, string(out), "table=AAPL_1d")
}
