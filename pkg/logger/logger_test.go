package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json", OutputPath: "stdout"}, config.AppConfig{})
	assert.Error(t, err)
}

func TestNew_Builds(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := New(config.LogConfig{Level: "debug", Format: format, OutputPath: "stderr"},
			config.AppConfig{Name: "consultrec", Environment: "test", Version: "dev"})
		require.NoError(t, err, format)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	}
}

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Error("storage unavailable during upload",
		ErrorClass(ClassStorageUnavailable),
		ConsultationID("65f0c2a1b3d4e5f60123456a"),
		VideoPath("15-03-2024", "65f0c2a1b3d4e5f60123456a.webm"),
		RequestID("req-1"),
		zap.Error(errors.New("stat /mnt/nas: no such file")),
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "storage_unavailable", fields["error_class"])
	assert.Equal(t, "65f0c2a1b3d4e5f60123456a", fields["consultation_id"])
	assert.Equal(t, "15-03-2024/65f0c2a1b3d4e5f60123456a.webm", fields["video"])
	assert.Equal(t, "req-1", fields["request_id"])
}
