// Package notify implements the Notifier boundary of spec.md §4.6/§4.10:
// the final phase of a handler execution, always run regardless of how the
// prior phases ended, whose own failures are logged and swallowed rather
// than turned into a handler failure (spec.md §9 Open Question, resolved as
// log-and-continue).
package notify

import (
	"context"

	"github.com/aodn/pipeline/model"
)

// Notifier delivers a PublishReport to interested recipients. Send must
// never be allowed to alter the handler's own disposition; callers log a
// returned error and move on.
type Notifier interface {
	Send(ctx context.Context, report *model.PublishReport, recipients []string) error
}

// MultiNotifier fans a single Send out to every configured Notifier,
// continuing past individual failures so that one broken channel (a
// misconfigured webhook) does not suppress delivery over the others (a
// working mail relay).
type MultiNotifier struct {
	Notifiers []Notifier
}

// Send calls every configured Notifier's Send, continuing past failures
// rather than stopping at the first, and returns the first error
// encountered only for the caller's own logging purposes.
func (m *MultiNotifier) Send(ctx context.Context, report *model.PublishReport, recipients []string) error {
	var firstErr error
	for _, n := range m.Notifiers {
		if err := n.Send(ctx, report, recipients); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Notifier = (*MultiNotifier)(nil)
