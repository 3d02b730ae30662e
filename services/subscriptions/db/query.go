package db

import (
	"context"
)

const subscriptionColumns = `user_id, nrc, code, name, instructor, capacity, available, threshold, last_notified, created_at`

func scanSubscriptions(rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}) ([]Subscription, error) {
	defer rows.Close()
	var items []Subscription
	for rows.Next() {
		var i Subscription
		if err := rows.Scan(
			&i.UserID,
			&i.Nrc,
			&i.Code,
			&i.Name,
			&i.Instructor,
			&i.Capacity,
			&i.Available,
			&i.Threshold,
			&i.LastNotified,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertSubscription = `INSERT INTO subscription (` + subscriptionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT (user_id, nrc) DO UPDATE SET
    code = excluded.code,
    name = excluded.name,
    instructor = excluded.instructor,
    capacity = excluded.capacity,
    available = excluded.available,
    threshold = excluded.threshold`

type UpsertSubscriptionParams struct {
	UserID     string
	Nrc        string
	Code       string
	Name       string
	Instructor string
	Capacity   int64
	Available  int64
	Threshold  int64
	CreatedAt  int64
}

// UpsertSubscription keeps last_notified and created_at of an existing row.
func (q *Queries) UpsertSubscription(ctx context.Context, arg UpsertSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSubscription,
		arg.UserID,
		arg.Nrc,
		arg.Code,
		arg.Name,
		arg.Instructor,
		arg.Capacity,
		arg.Available,
		arg.Threshold,
		arg.CreatedAt,
	)
	return err
}

const deleteSubscription = `DELETE FROM subscription
WHERE user_id = ? AND (nrc = ? OR upper(code) = upper(?))`

// DeleteSubscription removes the subscriptions of a user matching either an
// nrc or a subject code, it returns how many were removed.
func (q *Queries) DeleteSubscription(ctx context.Context, userID, key string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSubscription, userID, key, key)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listSubscriptions = `SELECT ` + subscriptionColumns + ` FROM subscription
WHERE user_id = ?
ORDER BY created_at, nrc`

func (q *Queries) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := q.db.QueryContext(ctx, listSubscriptions, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscriptions(rows)
}

const getSubscription = `SELECT ` + subscriptionColumns + ` FROM subscription
WHERE user_id = ? AND nrc = ?`

func (q *Queries) GetSubscription(ctx context.Context, userID, nrc string) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscription, userID, nrc)
	var i Subscription
	err := row.Scan(
		&i.UserID,
		&i.Nrc,
		&i.Code,
		&i.Name,
		&i.Instructor,
		&i.Capacity,
		&i.Available,
		&i.Threshold,
		&i.LastNotified,
		&i.CreatedAt,
	)
	return i, err
}

const allSubscriptions = `SELECT ` + subscriptionColumns + ` FROM subscription
ORDER BY created_at, user_id, nrc`

func (q *Queries) AllSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := q.db.QueryContext(ctx, allSubscriptions)
	if err != nil {
		return nil, err
	}
	return scanSubscriptions(rows)
}

const listUsers = `SELECT user_id FROM subscription
GROUP BY user_id
ORDER BY min(created_at), user_id`

// ListUsers returns every subscribed user, the one who subscribed first comes first.
func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		items = append(items, userID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markNotified = `UPDATE subscription SET last_notified = ?
WHERE user_id = ? AND nrc = ?`

func (q *Queries) MarkNotified(ctx context.Context, lastNotified int64, userID, nrc string) error {
	_, err := q.db.ExecContext(ctx, markNotified, lastNotified, userID, nrc)
	return err
}
