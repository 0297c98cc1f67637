package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/appserv/internal/domain/repository"
)

// DefaultChunkSize bounds how many bulk rows share one transaction.
const DefaultChunkSize = 50

type Options struct {
	SessionTTL    time.Duration
	RefreshWindow time.Duration
	ChunkSize     int
	Now           func() time.Time
}

// Repository is the Postgres backend of repository.Repository.
type Repository struct {
	pool      DBPool
	issuer    repository.TokenIssuer
	ttl       time.Duration
	refresh   time.Duration
	chunkSize int
	now       func() time.Time
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository(pool DBPool, issuer repository.TokenIssuer, opts Options) *Repository {
	r := &Repository{
		pool:      pool,
		issuer:    issuer,
		ttl:       opts.SessionTTL,
		refresh:   opts.RefreshWindow,
		chunkSize: opts.ChunkSize,
		now:       opts.Now,
	}
	if r.chunkSize <= 0 {
		r.chunkSize = DefaultChunkSize
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Repository) Close() { r.pool.Close() }

// withTx runs fn in one transaction: commit on nil, rollback on error.
func (r *Repository) withTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return dbErr(op+": begin", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return dbErr(op+": rollback", errors.Join(err, rbErr))
		}
		return dbErr(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return dbErr(op+": commit", err)
	}
	return nil
}

// inChunks applies fn to items [0, n) committing every r.chunkSize rows.
// A failure rolls back only the current chunk; earlier chunks stay committed.
// It returns the rows reported as affected by fn across committed chunks.
func (r *Repository) inChunks(ctx context.Context, op string, n int, fn func(tx pgx.Tx, i int) (int64, error)) (int, error) {
	total := 0
	for start := 0; start < n; start += r.chunkSize {
		end := min(start+r.chunkSize, n)
		var affected int
		err := r.withTx(ctx, op, func(tx pgx.Tx) error {
			affected = 0
			for i := start; i < end; i++ {
				rows, err := fn(tx, i)
				if err != nil {
					return err
				}
				affected += int(rows)
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

func (r *Repository) unix() int64 { return r.now().Unix() }
