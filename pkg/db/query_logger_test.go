package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

func captureLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "db-test", Output: buf})
}

func stmt() (string, int64) { return "SELECT 1", 1 }

func TestQueryLoggerTracesSlowAndFailed(t *testing.T) {
	buf := &bytes.Buffer{}
	ql := newQueryLogger(captureLogger(buf), 10*time.Millisecond)
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast successful query should not be logged: %s", buf.String())
	}

	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found should not be logged: %s", buf.String())
	}

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	if !bytes.Contains(buf.Bytes(), []byte("db.query_slow")) {
		t.Fatalf("expected slow query warning, got %s", buf.String())
	}

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	if !bytes.Contains(buf.Bytes(), []byte("db.query_failed")) {
		t.Fatalf("expected failure log, got %s", buf.String())
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	buf := &bytes.Buffer{}
	ql := newQueryLogger(captureLogger(buf), time.Nanosecond).LogMode(gormlogger.Silent)
	ql.Trace(context.Background(), time.Now().Add(-time.Second), stmt, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should drop everything: %s", buf.String())
	}
}

func TestNewQueryLoggerWithoutLogger(t *testing.T) {
	if newQueryLogger(nil, time.Second) != gormlogger.Discard {
		t.Fatal("nil logger should discard")
	}
}
