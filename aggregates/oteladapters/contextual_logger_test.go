package oteladapters_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventfold/aggregates-go/aggregates/oteladapters"
	"github.com/eventfold/aggregates-go/testutil/helper"
)

func Test_SlogBridgeLogger_WithHandler(t *testing.T) {
	spy := helper.NewLogHandlerSpy(false)
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(spy)
	ctx := context.Background()

	logger.DebugContext(ctx, "debug message", "key", "value")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message", "error", "boom")

	assert.Equal(t, 4, spy.RecordCount())
	assert.True(t, spy.HasLog(slog.LevelDebug, "debug message"))
	assert.True(t, spy.HasLog(slog.LevelInfo, "info message"))
	assert.True(t, spy.HasLog(slog.LevelWarn, "warn message"))
	assert.True(t, spy.HasLog(slog.LevelError, "error message"))
	assert.True(t, spy.HasLogWithAttr(slog.LevelDebug, "debug message", "key"))
	assert.True(t, spy.HasLogWithAttr(slog.LevelError, "error message", "error"))
}

func Test_NewSlogBridgeLogger_Construction(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")

	assert.NotNil(t, logger)
}
