// Package oversight delivers operator-facing reports: recovered panics,
// delivery failures and the daily digest. Reports go to a Slack channel
// when one is configured and to the log otherwise.
package oversight

import (
	"context"
	"fmt"
	"log"
)

// Reporter receives operator reports. Implementations must never block the
// caller on delivery problems; a reporter that cannot deliver logs and
// moves on.
type Reporter interface {
	ReportError(ctx context.Context, component string, err error)
	ReportPanic(ctx context.Context, component string, recovered interface{}, stack []byte)
	Announce(ctx context.Context, title, body string)
}

// LogReporter writes reports to the standard logger. It is the fallback
// when no Slack channel is configured.
type LogReporter struct{}

func (LogReporter) ReportError(ctx context.Context, component string, err error) {
	log.Printf("oversight: %s: %v", component, err)
}

func (LogReporter) ReportPanic(ctx context.Context, component string, recovered interface{}, stack []byte) {
	log.Printf("oversight: panic in %s: %v\n%s", component, recovered, stack)
}

func (LogReporter) Announce(ctx context.Context, title, body string) {
	log.Printf("oversight: %s\n%s", title, body)
}

// Multi fans a report out to several reporters.
type Multi []Reporter

func (m Multi) ReportError(ctx context.Context, component string, err error) {
	for _, r := range m {
		r.ReportError(ctx, component, err)
	}
}

func (m Multi) ReportPanic(ctx context.Context, component string, recovered interface{}, stack []byte) {
	for _, r := range m {
		r.ReportPanic(ctx, component, recovered, stack)
	}
}

func (m Multi) Announce(ctx context.Context, title, body string) {
	for _, r := range m {
		r.Announce(ctx, title, body)
	}
}

func formatPanic(component string, recovered interface{}) string {
	return fmt.Sprintf(":rotating_light: panic in %s: %v", component, recovered)
}
