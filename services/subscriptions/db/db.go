package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Subscription struct {
	UserID       string
	Nrc          string
	Code         string
	Name         string
	Instructor   string
	Capacity     int64
	Available    int64
	Threshold    int64
	LastNotified int64
	CreatedAt    int64
}
