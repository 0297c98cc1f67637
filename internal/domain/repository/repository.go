package repository

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/appserv/internal/domain/entity"
)

// SignupParams carries an already validated registration. PasswdHash is the email-salted hash.
type SignupParams struct {
	UserName    string
	Email       string
	PasswdHash  string
	ProductCode string
}

// SigninParams requests a session for ProductCode. AutoOpen allows creating a missing membership.
type SigninParams struct {
	Email       string
	PasswdHash  string
	ProductCode string
	AutoOpen    bool
}

// UserInfoParams applies only the non-nil fields.
type UserInfoParams struct {
	UserID     int64
	ProductID  int64
	UserName   *string
	PasswdHash *string
	Avatar     *string
}

// TokenIssuer mints session credentials.
type TokenIssuer interface {
	Issue(userID, productID int64, now time.Time) (token string, expire int64, err error)
}

// AccountRepository covers users, products, memberships and sessions.
type AccountRepository interface {
	CreateUser(ctx context.Context, p SignupParams) (*entity.User, error)
	SigninUser(ctx context.Context, p SigninParams) (*entity.SigninResult, error)
	GetSession(ctx context.Context, token string) (*entity.Session, error)
	CreateSession(ctx context.Context, userID, productID int64) (*entity.Session, error)
	RotateSession(ctx context.Context, token string) (*entity.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now int64) (int64, error)
	UpdateUserInfo(ctx context.Context, p UserInfoParams) error
	ResetPassword(ctx context.Context, email, passwdHash string) error

	QueryUser(ctx context.Context, userID int64) (*entity.User, error)
	QueryProduct(ctx context.Context, productID int64) (*entity.Product, error)
	QueryMembership(ctx context.Context, userID, productID int64) (*entity.Membership, error)
	Products(ctx context.Context) ([]entity.Product, error)
	UserProducts(ctx context.Context, userID int64) ([]entity.Product, error)
	OpenProduct(ctx context.Context, userID int64, productCode string) (*entity.Membership, error)
	Avatars(ctx context.Context) ([]string, error)
}

// PreferenceRepository covers the per-user recently-played, group and favorite sets.
// Bulk inserts return how many rows were actually added; duplicates are skipped.
type PreferenceRepository interface {
	NewRecently(ctx context.Context, userID int64, items []entity.Recently) (int, error)
	ModifyRecently(ctx context.Context, userID int64, item entity.Recently) error
	ClearRecently(ctx context.Context, userID int64) error
	QueryRecently(ctx context.Context, userID int64) ([]entity.Recently, error)

	NewGroups(ctx context.Context, userID int64, groups []entity.FavGroup) (int, error)
	ModifyGroup(ctx context.Context, userID int64, oldName string, group entity.FavGroup) error
	DeleteGroups(ctx context.Context, userID int64, names []string) error
	QueryGroups(ctx context.Context, userID int64, name string) ([]entity.FavGroup, error)

	NewFavorite(ctx context.Context, userID int64, items []entity.StationGroup) (int, error)
	DeleteFavorite(ctx context.Context, userID int64, stations, groupNames []string) error
	ModifyFavorite(ctx context.Context, userID int64, station string, groupNames []string) error
	QueryFavorites(ctx context.Context, userID int64) ([]entity.StationGroup, error)

	QuerySync(ctx context.Context, userID int64, since int64) (*entity.SyncSet, error)
}

// Repository is the full data-access contract a backend must satisfy.
type Repository interface {
	AccountRepository
	PreferenceRepository
	Close()
}

// VerificationStore holds short-lived challenge values. Get treats expired entries as absent.
type VerificationStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// AvatarStore is path-addressed blob storage for avatar files.
type AvatarStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) (io.ReadCloser, error)
	Write(ctx context.Context, name, contentType string, r io.Reader) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}
