package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_Prod(t *testing.T) {
	t.Chdir(t.TempDir())
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l, cleanup := Setup("prod", "debug")
	defer cleanup()

	l.Info().Msg("hello")
	assert.FileExists(t, "logs/"+logFile)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
