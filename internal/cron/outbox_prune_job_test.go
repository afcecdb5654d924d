package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

type recordingPruner struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (r *recordingPruner) Prune(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	r.cutoff = cutoff
	r.minAttempts = minAttemptCount
	return r.deleted, r.err
}

func TestOutboxPruneJobUsesRetention(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &recordingPruner{deleted: 7}
	job, err := NewOutboxPruneJob(OutboxPruneJobParams{
		Logger:      quietLogger(),
		DB:          passthroughTx{},
		Repo:        repo,
		Retention:   72 * time.Hour,
		MinAttempts: 10,
	})
	if err != nil {
		t.Fatalf("NewOutboxPruneJob: %v", err)
	}
	job.(*outboxPruneJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-72 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", repo.cutoff, want)
	}
	if repo.minAttempts != 10 {
		t.Fatalf("min attempts = %d", repo.minAttempts)
	}
}

func TestOutboxPruneJobDefaultsAndErrors(t *testing.T) {
	repo := &recordingPruner{err: errors.New("locked")}
	job, _ := NewOutboxPruneJob(OutboxPruneJobParams{Logger: quietLogger(), DB: passthroughTx{}, Repo: repo})
	pj := job.(*outboxPruneJob)
	if pj.retention != defaultOutboxRetention || pj.minAttempts != defaultOutboxMinAttempts {
		t.Fatalf("defaults not applied: %s %d", pj.retention, pj.minAttempts)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected repository error")
	}
	if job.Name() != "outbox-prune" {
		t.Fatalf("name = %s", job.Name())
	}
}
