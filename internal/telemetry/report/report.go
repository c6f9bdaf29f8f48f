// Package report is the side channel for failures that must not interrupt
// event processing: dropped envelopes, handler panics, persistence writes
// that failed after retries.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// Incident is a failure reported out of band.
type Incident struct {
	Err       error
	Component string            // e.g. "dispatcher", "persist"
	Tags      map[string]string // bounded context such as shard or op
}

// Reporter receives incidents. Implementations must not block.
type Reporter interface {
	Report(ctx context.Context, inc Incident)
}

// LogReporter writes incidents to a structured logger.
type LogReporter struct {
	Logger logger.Logger
}

// Report implements Reporter.
func (r LogReporter) Report(ctx context.Context, inc Incident) {
	l := r.Logger
	if l == nil {
		l = logger.FromContext(ctx)
	}
	args := []any{"component", inc.Component, "error", inc.Err}
	if code := domain.GetErrorCode(inc.Err); code != "" {
		args = append(args, "code", code)
	}
	for _, k := range sortedKeys(inc.Tags) {
		args = append(args, k, inc.Tags[k])
	}
	l.WithContext(ctx).Error("incident", args...)
}

// SentryReporter forwards incidents to Sentry through its own hub.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter creates a reporter with a dedicated sentry client.
func NewSentryReporter(opts sentry.ClientOptions) (*SentryReporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report implements Reporter.
func (r *SentryReporter) Report(_ context.Context, inc Incident) {
	if inc.Err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", inc.Component)
		if code := domain.GetErrorCode(inc.Err); code != "" {
			scope.SetTag("code", code)
		}
		for k, v := range inc.Tags {
			scope.SetTag(k, v)
		}
		r.hub.CaptureException(inc.Err)
	})
}

// Flush waits for buffered events to be delivered.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// Multi fans an incident out to several reporters.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, inc Incident) {
	for _, r := range m {
		r.Report(ctx, inc)
	}
}

// Nop discards incidents.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(context.Context, Incident) {}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
