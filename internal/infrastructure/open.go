package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/oksasatya/appserv/config"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/internal/infrastructure/postgres"
)

// ErrUnsupportedScheme is returned for a DSN whose scheme has no backend.
type ErrUnsupportedScheme string

func (e ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("unsupported database scheme %q", string(e))
}

// Scheme returns the lower-cased scheme of dsn.
func Scheme(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		return "", ErrUnsupportedScheme("")
	}
	return strings.ToLower(u.Scheme), nil
}

// OpenRepository selects the backend by the DSN scheme of cfg.
func OpenRepository(ctx context.Context, cfg *config.Config, issuer repository.TokenIssuer) (repository.Repository, error) {
	dsn := cfg.PostgresDSN()
	scheme, err := Scheme(dsn)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "postgres", "postgresql":
		pool, err := postgres.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, err
		}
		return postgres.NewRepository(pool, issuer, postgres.Options{
			SessionTTL:    cfg.SessionExpire,
			RefreshWindow: cfg.SessionSlideWindow(),
			ChunkSize:     cfg.BulkChunkSize,
		}), nil
	default:
		return nil, ErrUnsupportedScheme(scheme)
	}
}
