package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
)

const (
	userColumns       = `id, user_name, email, passwd, status, update_time`
	productColumns    = `id, code, description, status, update_time`
	membershipColumns = `id, user_id, product_id, avatar, status, update_time`
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.Passwd, &u.Status, &u.UpdateTime); err != nil {
		return nil, err
	}
	return u, nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.Code, &p.Description, &p.Status, &p.UpdateTime); err != nil {
		return nil, err
	}
	return p, nil
}

func scanMembership(row pgx.Row) (*entity.Membership, error) {
	m := &entity.Membership{}
	if err := row.Scan(&m.ID, &m.UserID, &m.ProductID, &m.Avatar, &m.Status, &m.UpdateTime); err != nil {
		return nil, err
	}
	return m, nil
}

func userByEmail(ctx context.Context, q querier, email string) (*entity.User, error) {
	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if isNoRows(err) {
		return nil, apperr.ErrUserNotExists
	}
	return u, err
}

func productByCode(ctx context.Context, q querier, code string) (*entity.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE code = $1 AND status = $2`, code, entity.StatusNormal))
	if isNoRows(err) {
		return nil, apperr.ErrProductNotExists
	}
	return p, err
}

func membershipOf(ctx context.Context, q querier, userID, productID int64) (*entity.Membership, error) {
	m, err := scanMembership(q.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM user_products WHERE user_id = $1 AND product_id = $2 AND status = $3`,
		userID, productID, entity.StatusNormal))
	if isNoRows(err) {
		return nil, apperr.ErrProductNotOpen
	}
	return m, err
}

func insertMembership(ctx context.Context, q querier, userID, productID, now int64) (*entity.Membership, error) {
	m := &entity.Membership{UserID: userID, ProductID: productID, Status: entity.StatusNormal, UpdateTime: now}
	err := q.QueryRow(ctx, `
		INSERT INTO user_products (user_id, product_id, avatar, status, update_time)
		VALUES ($1, $2, '', $3, $4)
		RETURNING id`, userID, productID, entity.StatusNormal, now).Scan(&m.ID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateUser inserts the user and its first membership together.
func (r *Repository) CreateUser(ctx context.Context, p repository.SignupParams) (*entity.User, error) {
	email := helpers.NormalizeEmail(p.Email)
	var user *entity.User
	err := r.withTx(ctx, "create user", func(tx pgx.Tx) error {
		var existing int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&existing)
		switch {
		case err == nil:
			return apperr.ErrUserExists
		case !isNoRows(err):
			return err
		}

		product, err := productByCode(ctx, tx, p.ProductCode)
		if err != nil {
			return err
		}

		now := r.unix()
		u := &entity.User{UserName: p.UserName, Email: email, Passwd: p.PasswdHash, Status: entity.StatusNormal, UpdateTime: now}
		err = tx.QueryRow(ctx, `
			INSERT INTO users (user_name, email, passwd, status, update_time)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, u.UserName, u.Email, u.Passwd, u.Status, u.UpdateTime).Scan(&u.ID)
		if isUniqueViolation(err) {
			return apperr.ErrUserExists
		}
		if err != nil {
			return err
		}

		if _, err := insertMembership(ctx, tx, u.ID, product.ID, now); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SigninUser checks credentials, resolves the membership and persists a new session.
func (r *Repository) SigninUser(ctx context.Context, p repository.SigninParams) (*entity.SigninResult, error) {
	var res *entity.SigninResult
	err := r.withTx(ctx, "signin user", func(tx pgx.Tx) error {
		user, err := userByEmail(ctx, tx, helpers.NormalizeEmail(p.Email))
		if err != nil {
			return err
		}
		if !user.Active() {
			return apperr.ErrUserNotExists
		}
		if !helpers.CompareHashAndPassword(user.Passwd, p.PasswdHash) {
			return apperr.ErrUserPasswdError
		}

		product, err := productByCode(ctx, tx, p.ProductCode)
		if err != nil {
			return err
		}

		now := r.now()
		membership, err := membershipOf(ctx, tx, user.ID, product.ID)
		if errors.Is(err, apperr.ErrProductNotOpen) && p.AutoOpen {
			membership, err = insertMembership(ctx, tx, user.ID, product.ID, now.Unix())
		}
		if err != nil {
			return err
		}

		session, err := r.insertSession(ctx, tx, user.ID, product.ID, now)
		if err != nil {
			return err
		}
		res = &entity.SigninResult{User: *user, Product: *product, Membership: *membership, Session: *session}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateUserInfo writes only the provided fields. Name and password go to the user row,
// the avatar to the membership of ProductID.
func (r *Repository) UpdateUserInfo(ctx context.Context, p repository.UserInfoParams) error {
	if p.UserName == nil && p.PasswdHash == nil && p.Avatar == nil {
		return nil
	}
	return r.withTx(ctx, "update user info", func(tx pgx.Tx) error {
		now := r.unix()
		if p.UserName != nil {
			tag, err := tx.Exec(ctx, `UPDATE users SET user_name = $1, update_time = $2 WHERE id = $3`, *p.UserName, now, p.UserID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return apperr.ErrUserNotExists
			}
		}
		if p.PasswdHash != nil {
			tag, err := tx.Exec(ctx, `UPDATE users SET passwd = $1, update_time = $2 WHERE id = $3`, *p.PasswdHash, now, p.UserID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return apperr.ErrUserNotExists
			}
		}
		if p.Avatar != nil {
			tag, err := tx.Exec(ctx, `
				UPDATE user_products SET avatar = $1, update_time = $2
				WHERE user_id = $3 AND product_id = $4`, *p.Avatar, now, p.UserID, p.ProductID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return apperr.ErrProductNotOpen
			}
		}
		return nil
	})
}

// ResetPassword replaces the password and revokes every session of the account.
func (r *Repository) ResetPassword(ctx context.Context, email, passwdHash string) error {
	return r.withTx(ctx, "reset password", func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `
			UPDATE users SET passwd = $1, update_time = $2
			WHERE email = $3
			RETURNING id`, passwdHash, r.unix(), helpers.NormalizeEmail(email)).Scan(&userID)
		if isNoRows(err) {
			return apperr.ErrUserNotExists
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
		return err
	})
}

func (r *Repository) QueryUser(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if isNoRows(err) {
		return nil, apperr.ErrUserNotExists
	}
	if err != nil {
		return nil, dbErr("query user", err)
	}
	return u, nil
}

func (r *Repository) QueryProduct(ctx context.Context, productID int64) (*entity.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID))
	if isNoRows(err) {
		return nil, apperr.ErrProductNotExists
	}
	if err != nil {
		return nil, dbErr("query product", err)
	}
	return p, nil
}

func (r *Repository) QueryMembership(ctx context.Context, userID, productID int64) (*entity.Membership, error) {
	m, err := membershipOf(ctx, r.pool, userID, productID)
	if err != nil {
		return nil, dbErr("query membership", err)
	}
	return m, nil
}

func (r *Repository) Products(ctx context.Context) ([]entity.Product, error) {
	return r.queryProducts(ctx, "products",
		`SELECT `+productColumns+` FROM products WHERE status = $1 ORDER BY id`, entity.StatusNormal)
}

func (r *Repository) UserProducts(ctx context.Context, userID int64) ([]entity.Product, error) {
	return r.queryProducts(ctx, "user products", `
		SELECT p.id, p.code, p.description, p.status, p.update_time
		FROM products p
		JOIN user_products up ON up.product_id = p.id
		WHERE up.user_id = $1 AND up.status = $2
		ORDER BY p.id`, userID, entity.StatusNormal)
}

func (r *Repository) queryProducts(ctx context.Context, op, sql string, args ...any) ([]entity.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, dbErr(op, err)
	}
	defer rows.Close()

	out := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, dbErr(op, err)
		}
		out = append(out, *p)
	}
	return out, dbErr(op, rows.Err())
}

// OpenProduct creates the membership when missing and returns it either way.
func (r *Repository) OpenProduct(ctx context.Context, userID int64, productCode string) (*entity.Membership, error) {
	var m *entity.Membership
	err := r.withTx(ctx, "open product", func(tx pgx.Tx) error {
		product, err := productByCode(ctx, tx, productCode)
		if err != nil {
			return err
		}
		m, err = membershipOf(ctx, tx, userID, product.ID)
		if errors.Is(err, apperr.ErrProductNotOpen) {
			m, err = insertMembership(ctx, tx, userID, product.ID, r.unix())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Avatars lists every avatar name still referenced by a membership.
func (r *Repository) Avatars(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT avatar FROM user_products WHERE avatar <> ''`)
	if err != nil {
		return nil, dbErr("avatars", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dbErr("avatars", err)
	}
	return names, nil
}
