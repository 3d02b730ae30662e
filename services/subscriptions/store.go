package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"siiau-backend/internal/chrono"
	"siiau-backend/lib/catalog"
	"siiau-backend/services/subscriptions/db"
	"strings"
	"time"
)

var (
	ErrNotSubscribed    = errors.New("not subscribed")
	ErrInvalidThreshold = errors.New("threshold must be at least 1")
	ErrMissingUser      = errors.New("missing user id")
)

// Subscription is a user's interest in a single section. The catalog fields
// are a copy of the section at the time of subscribing, they are used when the
// section disappears from the catalog.
type Subscription struct {
	UserID     string `json:"user_id"`
	NRC        string `json:"nrc"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Instructor string `json:"instructor"`
	Capacity   int    `json:"capacity"`
	Available  int    `json:"available"`
	// Threshold is the minimum number of open seats that triggers an alert.
	Threshold int `json:"threshold"`
	// LastNotified is zero if no alert has been sent yet.
	LastNotified time.Time `json:"last_notified"`
}

func fromUnix(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).In(chrono.Guadalajara())
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromRow(row db.Subscription) Subscription {
	return Subscription{
		UserID:       row.UserID,
		NRC:          row.Nrc,
		Code:         row.Code,
		Name:         row.Name,
		Instructor:   row.Instructor,
		Capacity:     int(row.Capacity),
		Available:    int(row.Available),
		Threshold:    int(row.Threshold),
		LastNotified: fromUnix(row.LastNotified),
	}
}

func fromRows(rows []db.Subscription) []Subscription {
	out := make([]Subscription, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out
}

// Store persists subscriptions.
type Store struct {
	qry   *db.Queries
	clock chrono.TimeAPI
}

func NewStore(database *sql.DB, clock chrono.TimeAPI) Store {
	return Store{qry: db.New(database), clock: clock}
}

// Subscribe saves (or updates) a user's subscription to section. A repeated
// subscription keeps its notification history.
func (s Store) Subscribe(ctx context.Context, user string, section catalog.Section, threshold int) (Subscription, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Subscription{}, fmt.Errorf("subscribe: %w", ErrMissingUser)
	}
	if threshold < 1 {
		return Subscription{}, ErrInvalidThreshold
	}

	err := s.qry.UpsertSubscription(ctx, db.UpsertSubscriptionParams{
		UserID:     user,
		Nrc:        section.ID,
		Code:       section.SubjectCode,
		Name:       section.Name,
		Instructor: section.Instructor(),
		Capacity:   int64(section.TotalCount()),
		Available:  int64(section.AvailableCount()),
		Threshold:  int64(threshold),
		CreatedAt:  s.clock.Now().UnixNano(),
	})
	if err != nil {
		return Subscription{}, fmt.Errorf("subscribe: %w", err)
	}

	row, err := s.qry.GetSubscription(ctx, user, section.ID)
	if err != nil {
		return Subscription{}, fmt.Errorf("subscribe: %w", err)
	}
	return fromRow(row), nil
}

// Unsubscribe removes the subscriptions of user whose NRC or subject code is
// key. ErrNotSubscribed is returned if nothing matched.
func (s Store) Unsubscribe(ctx context.Context, user, key string) (int, error) {
	removed, err := s.qry.DeleteSubscription(ctx, user, strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("unsubscribe: %w", err)
	}
	if removed == 0 {
		return 0, ErrNotSubscribed
	}
	return int(removed), nil
}

func (s Store) List(ctx context.Context, user string) ([]Subscription, error) {
	rows, err := s.qry.ListSubscriptions(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return fromRows(rows), nil
}

func (s Store) All(ctx context.Context) ([]Subscription, error) {
	rows, err := s.qry.AllSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all subscriptions: %w", err)
	}
	return fromRows(rows), nil
}

// Users returns every user with at least one subscription, in the order they
// first subscribed.
func (s Store) Users(ctx context.Context) ([]string, error) {
	users, err := s.qry.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s Store) MarkNotified(ctx context.Context, user, nrc string, at time.Time) error {
	err := s.qry.MarkNotified(ctx, toUnix(at), user, nrc)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}
