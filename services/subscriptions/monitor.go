package subscriptions

import (
	"context"
	"errors"
	"log/slog"
	"siiau-backend/internal/assert"
	"siiau-backend/internal/chrono"
	"siiau-backend/internal/telemetry"
	"siiau-backend/lib/catalog"
	"siiau-backend/services/notify"
	"time"
)

const (
	report_catalog_empty = "monitor.catalog-empty"
	report_notify        = "monitor.notify"
	report_store         = "monitor.store"
	report_alerts_sent   = "monitor.alerts-sent"
)

const (
	DefaultCooldown        = time.Hour
	DefaultCheckInterval   = time.Second * 10
	DefaultSummaryInterval = time.Minute * 30
)

// SnapshotSource provides the latest published catalog.
type SnapshotSource interface {
	Snapshot() *catalog.Snapshot
}

type MonitorOptions struct {
	Store    Store
	Catalog  SnapshotSource
	Notifier notify.Notifier
	Time     chrono.TimeAPI
	// Cooldown is the minimum time between two alerts for the same
	// subscription, defaults to DefaultCooldown.
	Cooldown        time.Duration
	CheckInterval   time.Duration
	SummaryInterval time.Duration
	// Admin receives startup and shutdown notices, when empty they go to
	// the first user that subscribed.
	Admin     string
	Telemetry telemetry.API
}

// Monitor alerts subscribers when their sections have open seats.
type Monitor struct {
	opts MonitorOptions
	tel  telemetry.API
}

func NewMonitor(opts MonitorOptions) *Monitor {
	assert.NotNil(opts.Catalog, "catalog")
	assert.NotNil(opts.Notifier, "notifier")
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.SummaryInterval <= 0 {
		opts.SummaryInterval = DefaultSummaryInterval
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return &Monitor{opts: opts, tel: telemetry.NewScopedAPI("subscriptions", tel)}
}

func (m *Monitor) due(sub Subscription, section catalog.Section, now time.Time) bool {
	threshold := sub.Threshold
	if threshold < 1 {
		threshold = 1
	}
	if section.AvailableCount() < threshold {
		return false
	}
	return sub.LastNotified.IsZero() || now.Sub(sub.LastNotified) > m.opts.Cooldown
}

// CheckAvailability sends an alert for every subscription whose section has
// enough open seats, at most once per cooldown. A failed delivery is not
// recorded so it is retried on the next check. It returns the number of
// alerts sent.
func (m *Monitor) CheckAvailability(ctx context.Context) (int, error) {
	subs, err := m.opts.Store.All(ctx)
	if err != nil {
		m.tel.ReportBroken(report_store, err)
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}

	snapshot := m.opts.Catalog.Snapshot()
	if snapshot.Len() == 0 {
		m.tel.ReportWarning(report_catalog_empty)
		return 0, nil
	}

	now := m.opts.Time.Now()
	sent := 0
	var errs []error
	for _, sub := range subs {
		section, ok := snapshot.Section(sub.NRC)
		if !ok || !m.due(sub, section, now) {
			continue
		}

		err := m.opts.Notifier.Notify(ctx, notify.FormatAlert(sub.UserID, section))
		if err != nil {
			m.tel.ReportWarning(
				report_notify, err,
				telemetry.KV{Key: "user", Value: sub.UserID},
				telemetry.KV{Key: "nrc", Value: sub.NRC},
			)
			continue
		}
		err = m.opts.Store.MarkNotified(ctx, sub.UserID, sub.NRC, now)
		if err != nil {
			m.tel.ReportBroken(report_store, err)
			errs = append(errs, err)
			continue
		}

		sent++
		slog.InfoContext(ctx, "alert sent", "user", sub.UserID, "nrc", sub.NRC)
	}

	m.tel.ReportCount(report_alerts_sent, int64(sent))
	return sent, errors.Join(errs...)
}

// SendSummaries sends every user a single message listing all of their
// subscriptions. It returns the number of summaries sent.
func (m *Monitor) SendSummaries(ctx context.Context) (int, error) {
	users, err := m.opts.Store.Users(ctx)
	if err != nil {
		m.tel.ReportBroken(report_store, err)
		return 0, err
	}

	snapshot := m.opts.Catalog.Snapshot()
	now := m.opts.Time.Now()
	sent := 0
	for _, user := range users {
		subs, err := m.opts.Store.List(ctx, user)
		if err != nil {
			m.tel.ReportBroken(report_store, err)
			return sent, err
		}

		entries := make([]notify.SummaryEntry, len(subs))
		for i, sub := range subs {
			entries[i] = notify.SummaryEntry{ID: sub.NRC, Name: sub.Name}
			if section, ok := snapshot.Section(sub.NRC); ok {
				entries[i].Section = &section
			}
		}

		err = m.opts.Notifier.Notify(ctx, notify.FormatSummary(user, entries, now))
		if err != nil {
			m.tel.ReportWarning(report_notify, err, telemetry.KV{Key: "user", Value: user})
			continue
		}
		sent++
	}
	return sent, nil
}

// Announce sends a notice to the admin, or to the first subscribed user if
// no admin is configured. It is a no-op when there is nobody to tell.
func (m *Monitor) Announce(ctx context.Context, subject, body string) error {
	to := m.opts.Admin
	if to == "" {
		users, err := m.opts.Store.Users(ctx)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		to = users[0]
	}
	return m.opts.Notifier.Notify(ctx, notify.Message{
		To:      to,
		Subject: subject,
		Body:    body,
	})
}

// Run checks availability every check interval and sends summaries every
// summary interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	check := time.NewTicker(m.opts.CheckInterval)
	defer check.Stop()
	summary := time.NewTicker(m.opts.SummaryInterval)
	defer summary.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-check.C:
			_, err := m.CheckAvailability(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "check availability", "err", err)
			}
		case <-summary.C:
			_, err := m.SendSummaries(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "send summaries", "err", err)
			}
		}
	}
}
