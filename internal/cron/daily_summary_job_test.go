package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

type fakeJobCounter struct {
	queued    int64
	failed    int64
	queuedErr error
}

func (f *fakeJobCounter) CountJobsWithStatus(ctx context.Context, status enums.JobStatus, updatedSince *time.Time) (int64, error) {
	switch status {
	case enums.JobStatusQueued:
		return f.queued, f.queuedErr
	case enums.JobStatusFailed:
		if updatedSince == nil {
			return 0, errors.New("failed count must be windowed")
		}
		return f.failed, nil
	default:
		return 0, nil
	}
}

type fakeEventCounter struct {
	fraudCases int64
	openItems  int64
}

func (f *fakeEventCounter) CountEventsByTypeSince(ctx context.Context, eventType enums.AutomationEventType, since time.Time) (int64, error) {
	return f.fraudCases, nil
}

func (f *fakeEventCounter) CountOpenInboxItems(ctx context.Context) (int64, error) {
	return f.openItems, nil
}

func newSummaryJob(t *testing.T, jobs *fakeJobCounter, events *fakeEventCounter, outbox *fakeEmitter) *dailySummaryJob {
	t.Helper()
	job, err := NewDailySummaryJob(DailySummaryJobParams{
		Logger: cronTestLogger(),
		Jobs:   jobs,
		Events: events,
		Outbox: outbox,
	})
	if err != nil {
		t.Fatalf("NewDailySummaryJob: %v", err)
	}
	return job.(*dailySummaryJob)
}

func TestDailySummaryEmitsDigestForDate(t *testing.T) {
	jobs := &fakeJobCounter{queued: 7, failed: 2}
	events := &fakeEventCounter{fraudCases: 3, openItems: 5}
	outbox := &fakeEmitter{}
	job := newSummaryJob(t, jobs, events, outbox)

	now := time.Date(2026, 8, 1, 6, 30, 0, 0, time.UTC)
	summary := job.check(context.Background(), now)
	if !summary.Emitted {
		t.Fatalf("digest not emitted: %+v", summary)
	}
	if summary.Date != "2026-08-01" || summary.FraudCases != 3 || summary.OutboundQueued != 7 ||
		summary.OutboundFailed != 2 || summary.OpenInboxItems != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(outbox.emitted) != 1 {
		t.Fatalf("expected one event, got %d", len(outbox.emitted))
	}
	event := outbox.emitted[0]
	if event.Type != enums.EventDailySummaryReady || event.DedupeKey != "daily_summary:2026-08-01" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDailySummarySameDateSameKey(t *testing.T) {
	outbox := &fakeEmitter{}
	job := newSummaryJob(t, &fakeJobCounter{}, &fakeEventCounter{}, outbox)

	morning := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	job.check(context.Background(), morning)
	job.check(context.Background(), evening)

	if len(outbox.emitted) != 2 {
		t.Fatalf("expected two emits, got %d", len(outbox.emitted))
	}
	if outbox.emitted[0].DedupeKey != outbox.emitted[1].DedupeKey {
		t.Fatal("same calendar date must reuse one dedupe key")
	}
}

func TestDailySummaryAbortsOnCountFailure(t *testing.T) {
	jobs := &fakeJobCounter{queuedErr: errors.New("connection refused")}
	outbox := &fakeEmitter{}
	job := newSummaryJob(t, jobs, &fakeEventCounter{fraudCases: 1}, outbox)

	summary := job.check(context.Background(), time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC))
	if summary.Emitted || summary.FraudCases != 0 {
		t.Fatalf("broken count must yield a zero digest: %+v", summary)
	}
	if len(outbox.emitted) != 0 {
		t.Fatal("no event on a failed count pass")
	}
}
