package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/Bridge/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("BRIDGE_TEST_LEVEL", "debug")
	yml := `
version: 0
log:
  level: ${BRIDGE_TEST_LEVEL}
  format: text
server:
  host: "::1"
readiness:
  attempts: 10
  interval: 250ms
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, model.LogFormatText, cfg.Log.Format)
	require.Equal(t, "::1", cfg.Server.Host)
	require.Equal(t, 10, cfg.Readiness.Attempts)
	require.Equal(t, 250*time.Millisecond, cfg.Readiness.Interval)
	// not in the document: default is kept
	require.Equal(t, model.DefaultReadinessDialLimit, cfg.Readiness.DialTimeout)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := model.LoadConfig(strings.NewReader("version: 0\n"))
	require.NoError(t, err)
	require.Equal(t, model.DefaultConfig(), cfg)
	require.Equal(t, 300, cfg.Readiness.Attempts)
	require.Equal(t, 100*time.Millisecond, cfg.Readiness.Interval)
}

func TestLoadConfig_Fail(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		then     string
	}{
		{
			scenario: "version",
			given:    "version: 1\n",
			then:     "config version 1 is not supported, expected 0",
		},
		{
			scenario: "not loopback",
			given:    "server:\n  host: 10.0.0.1\n",
			then:     "server.host 10.0.0.1: not a loopback address",
		},
		{
			scenario: "attempts",
			given:    "readiness:\n  attempts: 0\n",
			then:     "readiness.attempts must be positive, got 0",
		},
		{
			scenario: "level",
			given:    "log:\n  level: degub\n",
			then:     `log.level "degub": expected debug, info, warn or error`,
		},
		{
			scenario: "format",
			given:    "log:\n  format: xml\n",
			then:     `log.format "xml": expected json or text`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := model.LoadConfig(strings.NewReader(tc.given))
			require.Error(t, err)
			require.EqualError(t, err, tc.then)
		})
	}

	t.Run("level with offset is accepted", func(t *testing.T) {
		t.Parallel()
		cfg := model.DefaultConfig()
		cfg.Log.Level = "WARN+2"
		require.NoError(t, cfg.Validate())
	})

	t.Run("not loopback is wrapped", func(t *testing.T) {
		t.Parallel()
		cfg := model.DefaultConfig()
		cfg.Server.Host = "192.0.2.1"
		_, err := cfg.ServerAddr()
		require.ErrorIs(t, err, model.ErrNotLoopback)
	})
}
