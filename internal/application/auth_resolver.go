package application

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
)

const (
	TokenModeOpaque = "opaque"
	TokenModeJWT    = "jwt"
)

// AuthResolver turns a bearer credential into the caller's (user, product, membership).
type AuthResolver struct {
	Repo    repository.AccountRepository
	Mode    string
	JWT     *helpers.JWTManager
	Refresh time.Duration
	Now     func() time.Time
}

func NewAuthResolver(repo repository.AccountRepository, mode string, jwt *helpers.JWTManager, refresh time.Duration) *AuthResolver {
	return &AuthResolver{Repo: repo, Mode: mode, JWT: jwt, Refresh: refresh, Now: time.Now}
}

// invalid maps "the referenced row is gone" to TokenInvalid. Infrastructure errors pass through.
func invalid(err error) error {
	switch {
	case errors.Is(err, apperr.ErrUserNotExists),
		errors.Is(err, apperr.ErrProductNotExists),
		errors.Is(err, apperr.ErrProductNotOpen):
		return apperr.ErrTokenInvalid
	}
	return err
}

// Resolve validates token. In opaque mode the session row itself slides inside the
// refresh window. In jwt mode the row keeps the token's exp and one replacement per
// token is issued there instead, reported through NewToken; the presented token
// stays valid until its own exp.
func (a *AuthResolver) Resolve(ctx context.Context, token string) (*entity.AuthContext, error) {
	if a.Mode == TokenModeJWT {
		return a.resolveJWT(ctx, token)
	}
	if token == "" {
		return nil, apperr.ErrUserNotLogin
	}
	session, err := a.Repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return a.load(ctx, session)
}

func (a *AuthResolver) resolveJWT(ctx context.Context, token string) (*entity.AuthContext, error) {
	if token == "" {
		return nil, apperr.ErrTokenInvalid
	}
	claims, err := a.JWT.Parse(token)
	if err != nil {
		return nil, apperr.ErrTokenInvalid
	}
	// The row is what signout removes; a signed token without it is revoked.
	session, err := a.Repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID || session.ProductID != claims.ProductID {
		return nil, apperr.ErrTokenInvalid
	}
	auth, err := a.load(ctx, session)
	if err != nil {
		return nil, err
	}
	auth.Expire = claims.ExpiresAt.Unix()

	if claims.ExpiresAt.Sub(a.Now()) < a.Refresh {
		fresh, err := a.Repo.RotateSession(ctx, session.Token)
		if err != nil {
			return nil, err
		}
		auth.NewToken = fresh.Token
		auth.NewExpire = fresh.Expire
	}
	return auth, nil
}

func (a *AuthResolver) load(ctx context.Context, session *entity.Session) (*entity.AuthContext, error) {
	product, err := a.Repo.QueryProduct(ctx, session.ProductID)
	if err != nil {
		return nil, invalid(err)
	}
	user, err := a.Repo.QueryUser(ctx, session.UserID)
	if err != nil {
		return nil, invalid(err)
	}
	if !user.Active() || product.Status != entity.StatusNormal {
		return nil, apperr.ErrTokenInvalid
	}
	membership, err := a.Repo.QueryMembership(ctx, session.UserID, session.ProductID)
	if err != nil {
		return nil, invalid(err)
	}
	return &entity.AuthContext{
		User:       *user,
		Product:    *product,
		Membership: *membership,
		Token:      session.Token,
		Expire:     session.Expire,
	}, nil
}
