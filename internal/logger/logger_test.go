package logger_test

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/cortex/internal/logger"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		t.Run(level, func(t *testing.T) {
			log, err := logger.New(level, false)
			assert.NilError(t, err)
			log.Info("hello")
		})
	}
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core)).With(logger.String("component", "sync"))

	log.Warn("skipped", logger.Int64("id", 7), logger.Error(errors.New("boom")))

	entries := logs.All()
	assert.Equal(t, len(entries), 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, ctx["component"], "sync")
	assert.Equal(t, ctx["id"], int64(7))
	assert.Equal(t, ctx["error"], "boom")
	assert.Equal(t, entries[0].Level, zapcore.WarnLevel)
}

func TestNop(t *testing.T) {
	log := logger.Nop()
	log.Errorf("ignored %d", 1)
	assert.NilError(t, log.Sync())
}
