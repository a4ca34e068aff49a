package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestConfigure_SharesOutputWithPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Str("event", "PD").Msg("hello")
	assert.Contains(t, buf.String(), `"event":"PD"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	Log.Info().Msg("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	SetLevel("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
