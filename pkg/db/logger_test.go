package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedLogger(level gormlogger.LogLevel) (*QueryLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewQueryLogger(zap.New(core), level), logs
}

func TestTraceLogsFailuresWithoutValues(t *testing.T) {
	l, logs := newObservedLogger(gormlogger.Warn)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE payments SET amount = 1 WHERE id = 2", 0
	}, errors.New("boom"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "UPDATE", entries[0].ContextMap()["operation"])
	}

	_, vars := l.ParamsFilter(context.Background(), "SELECT ?", 42)
	assert.Nil(t, vars)
}

func TestTraceIgnoresRecordNotFoundAndFastQueries(t *testing.T) {
	l, logs := newObservedLogger(gormlogger.Warn)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM purchase_orders", 0
	}, gormlogger.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	assert.Zero(t, logs.Len())
}

func TestTraceFlagsSlowQueries(t *testing.T) {
	l, logs := newObservedLogger(gormlogger.Warn)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "WITH x AS (SELECT 1) SELECT * FROM x", 1
	}, nil)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "gorm.slow_query", entries[0].Message)
		assert.Equal(t, "SELECT", entries[0].ContextMap()["operation"])
	}
}

func TestSilentLoggerWritesNothing(t *testing.T) {
	l, logs := newObservedLogger(gormlogger.Warn)
	silent := l.LogMode(gormlogger.Silent)

	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("x"))
	silent.Error(context.Background(), "nope")
	assert.Zero(t, logs.Len())
}
