package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/pkg/apperr"
)

func (r *Repository) insertSession(ctx context.Context, tx pgx.Tx, userID, productID int64, now time.Time) (*entity.Session, error) {
	token, expire, err := r.issuer.Issue(userID, productID, now)
	if err != nil {
		return nil, err
	}
	s := &entity.Session{Token: token, UserID: userID, ProductID: productID, Expire: expire}
	err = tx.QueryRow(ctx, `
		INSERT INTO sessions (token, user_id, product_id, expire)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, token, userID, productID, expire).Scan(&s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession persists a new credential for an existing membership.
func (r *Repository) CreateSession(ctx context.Context, userID, productID int64) (*entity.Session, error) {
	var s *entity.Session
	err := r.withTx(ctx, "create session", func(tx pgx.Tx) error {
		var err error
		s, err = r.insertSession(ctx, tx, userID, productID, r.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RotateSession returns the replacement of token, minting it on first use. The row
// lock serializes concurrent callers so they share one replacement. A replacement
// that was signed out is minted again.
func (r *Repository) RotateSession(ctx context.Context, token string) (*entity.Session, error) {
	var next *entity.Session
	err := r.withTx(ctx, "rotate session", func(tx pgx.Tx) error {
		var (
			userID, productID int64
			successor         string
		)
		err := tx.QueryRow(ctx, `
			SELECT user_id, product_id, successor
			FROM sessions WHERE token = $1
			FOR UPDATE`, token).Scan(&userID, &productID, &successor)
		if isNoRows(err) {
			return apperr.ErrTokenInvalid
		}
		if err != nil {
			return err
		}

		if successor != "" {
			s := &entity.Session{}
			err := tx.QueryRow(ctx, `
				SELECT id, token, user_id, product_id, expire
				FROM sessions WHERE token = $1`, successor).Scan(&s.ID, &s.Token, &s.UserID, &s.ProductID, &s.Expire)
			if err == nil {
				next = s
				return nil
			}
			if !isNoRows(err) {
				return err
			}
		}

		s, err := r.insertSession(ctx, tx, userID, productID, r.now())
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET successor = $1 WHERE token = $2`, s.Token, token); err != nil {
			return err
		}
		next = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// GetSession validates token and slides its expiry when inside the refresh window.
// A zero refresh window never slides. An expired row is deleted and reported as TokenInvalid.
func (r *Repository) GetSession(ctx context.Context, token string) (*entity.Session, error) {
	var (
		session *entity.Session
		expired bool
	)
	err := r.withTx(ctx, "get session", func(tx pgx.Tx) error {
		s := &entity.Session{}
		err := tx.QueryRow(ctx, `
			SELECT id, token, user_id, product_id, expire
			FROM sessions WHERE token = $1
			FOR UPDATE`, token).Scan(&s.ID, &s.Token, &s.UserID, &s.ProductID, &s.Expire)
		if isNoRows(err) {
			return apperr.ErrTokenInvalid
		}
		if err != nil {
			return err
		}

		now := r.unix()
		if s.Expire <= now {
			expired = true
			_, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, s.ID)
			return err
		}
		if r.refresh > 0 && s.Expire-now < int64(r.refresh/time.Second) {
			expire := now + int64(r.ttl/time.Second)
			if _, err := tx.Exec(ctx, `UPDATE sessions SET expire = $1 WHERE id = $2`, expire, s.ID); err != nil {
				return err
			}
			s.Expire = expire
			s.Refreshed = true
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, apperr.ErrTokenInvalid
	}
	return session, nil
}

// DeleteSession is idempotent; an unknown token is not an error.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return dbErr("delete session", err)
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expire <= $1`, now)
	if err != nil {
		return 0, dbErr("delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}
