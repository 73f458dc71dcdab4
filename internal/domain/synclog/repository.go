package synclog

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, job Job, limit int) ([]Entry, error)
	ListSince(ctx context.Context, since time.Time) ([]Entry, error)
}
