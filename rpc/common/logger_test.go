package common

import (
	"bytes"
	"log"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		def       logger.LogLevel
		overrides map[string]logger.LogLevel
	}{
		{"empty", "", logger.INFO, map[string]logger.LogLevel{}},
		{"bare level", "WARN", logger.WARNING, map[string]logger.LogLevel{}},
		{"override only", "client=debug", logger.INFO, map[string]logger.LogLevel{"client": logger.DEBUG}},
		{
			"default and overrides", " error , client=debug,transport/grpc=warning",
			logger.ERROR,
			map[string]logger.LogLevel{"client": logger.DEBUG, "transport/grpc": logger.WARNING},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels, err := ParseLogLevels(tt.spec)
			require.NoError(t, err)
			require.Equal(t, tt.def, levels.Default)
			require.Equal(t, tt.overrides, levels.Overrides)
		})
	}
}

func TestParseLogLevelsErrors(t *testing.T) {
	for _, spec := range []string{"loud", "client=loud", "storage=debug"} {
		_, err := ParseLogLevels(spec)
		require.True(t, IsKind(err, ErrKindInvalidArgument), "spec %q", spec)
	}
}

func TestLogLevelsFor(t *testing.T) {
	levels, err := ParseLogLevels("error,client=debug")
	require.NoError(t, err)
	require.Equal(t, logger.DEBUG, levels.For("client"))
	require.Equal(t, logger.ERROR, levels.For("server"))
}

func TestDriverLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := &driverLogger{name: "client", level: logger.WARNING, out: log.New(&buf, "", 0)}

	l.Debugf("dropped %d", 1)
	l.Infof("dropped %d", 2)
	l.Warningf("kept %d", 3)
	l.Errorf("kept %d", 4)

	require.Equal(t, "WARN  | client         | kept 3\nERROR | client         | kept 4\n", buf.String())
	require.Panics(t, func() { l.Panicf("fatal") })
}
