package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		enabled zapcore.Level
		blocked zapcore.Level
	}{
		{"production default", Config{}, zapcore.InfoLevel, zapcore.DebugLevel},
		{"development default", Config{Development: true}, zapcore.DebugLevel, zapcore.InvalidLevel},
		{"explicit level", Config{Level: "warn"}, zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			core := logger.Core()
			assert.True(t, core.Enabled(tt.enabled))
			if tt.blocked != zapcore.InvalidLevel {
				assert.False(t, core.Enabled(tt.blocked))
			}
		})
	}
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
