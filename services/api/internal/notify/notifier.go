// Package notify turns booking and payment events into human notifications.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type Notification struct {
	Key       string
	Subject   string
	Body      string
	Recipient string
}

// Notifier delivers one notification. Email or messenger delivery can be
// plugged in behind it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications as structured log entries.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.log.WithFields(logrus.Fields{
		"key":       n.Key,
		"recipient": n.Recipient,
		"subject":   n.Subject,
	}).Info(n.Body)
	return nil
}

func humanTimeRange(start, end time.Time, loc *time.Location) string {
	if start.IsZero() {
		return "unscheduled"
	}
	st := start.In(loc)
	if end.IsZero() {
		return st.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s - %s", st.Format("2006-01-02 15:04"), end.In(loc).Format("15:04"))
}
