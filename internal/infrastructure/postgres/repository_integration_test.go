//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oksasatya/appserv/db"
	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
)

func startPostgres(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("appserv_test"),
		tcpostgres.WithUsername("appserv"),
		tcpostgres.WithPassword("appserv"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Up(dsn))

	pool, err := NewPool(ctx, dsn, 4, 0, 0)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO products (code, description, status, update_time)
		VALUES ('radio', 'Internet radio', '00', 0)`)
	require.NoError(t, err)

	repo := NewRepository(pool, helpers.NewOpaqueIssuer(15*24*time.Hour), Options{
		SessionTTL:    15 * 24 * time.Hour,
		RefreshWindow: time.Hour,
	})
	t.Cleanup(repo.Close)
	return repo
}

func signup(t *testing.T, repo *Repository, email string) *entity.SigninResult {
	t.Helper()
	ctx := context.Background()
	hash := helpers.HashPassword(email, "secret-pass")
	_, err := repo.CreateUser(ctx, repository.SignupParams{
		UserName: "ann", Email: email, PasswdHash: hash, ProductCode: "radio",
	})
	require.NoError(t, err)
	res, err := repo.SigninUser(ctx, repository.SigninParams{
		Email: email, PasswdHash: hash, ProductCode: "radio",
	})
	require.NoError(t, err)
	return res
}

func countRows(t *testing.T, repo *Repository, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, repo.pool.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}

func TestRepositoryIntegration(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	t.Run("signup signin sync", func(t *testing.T) {
		res := signup(t, repo, "a@x.io")
		uid := res.User.ID

		s, err := repo.GetSession(ctx, res.Session.Token)
		require.NoError(t, err)
		assert.Equal(t, uid, s.UserID)
		assert.False(t, s.Refreshed)

		set, err := repo.QuerySync(ctx, uid, 0)
		require.NoError(t, err)
		assert.Empty(t, set.Recently)
		assert.Empty(t, set.Groups)
		assert.Empty(t, set.Favorites)

		n, err := repo.NewRecently(ctx, uid, []entity.Recently{{StationUUID: "s1", StartTime: 100}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		set, err = repo.QuerySync(ctx, uid, 0)
		require.NoError(t, err)
		require.Len(t, set.Recently, 1)
		assert.Equal(t, "s1", set.Recently[0].StationUUID)

		set, err = repo.QuerySync(ctx, uid, 100)
		require.NoError(t, err)
		assert.Empty(t, set.Recently)

		require.NoError(t, repo.DeleteSession(ctx, res.Session.Token))
		_, err = repo.GetSession(ctx, res.Session.Token)
		assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	})

	t.Run("duplicate signup adds no row", func(t *testing.T) {
		signup(t, repo, "dup@x.io")
		before := countRows(t, repo, `SELECT count(*) FROM users`)

		_, err := repo.CreateUser(ctx, repository.SignupParams{
			UserName: "again", Email: "DUP@x.io", PasswdHash: "h", ProductCode: "radio",
		})
		assert.ErrorIs(t, err, apperr.ErrUserExists)
		assert.Equal(t, before, countRows(t, repo, `SELECT count(*) FROM users`))
	})

	t.Run("wrong password creates no session", func(t *testing.T) {
		res := signup(t, repo, "pw@x.io")
		before := countRows(t, repo, `SELECT count(*) FROM sessions WHERE user_id = $1`, res.User.ID)

		_, err := repo.SigninUser(ctx, repository.SigninParams{
			Email: "pw@x.io", PasswdHash: helpers.HashPassword("pw@x.io", "nope"), ProductCode: "radio",
		})
		assert.ErrorIs(t, err, apperr.ErrUserPasswdError)
		assert.Equal(t, before, countRows(t, repo, `SELECT count(*) FROM sessions WHERE user_id = $1`, res.User.ID))
	})

	t.Run("failed chunk keeps earlier chunks", func(t *testing.T) {
		uid := signup(t, repo, "chunk@x.io").User.ID

		items := make([]entity.Recently, 120)
		for i := range items {
			items[i] = entity.Recently{StationUUID: fmt.Sprintf("st-%03d", i), StartTime: int64(1000 + i)}
		}
		// NUL is rejected by text columns.
		items[75].StationUUID = "bad\x00"

		n, err := repo.NewRecently(ctx, uid, items)
		assert.ErrorIs(t, err, apperr.ErrDatabase)
		assert.Equal(t, 50, n)
		assert.Equal(t, 50, countRows(t, repo, `SELECT count(*) FROM recently WHERE user_id = $1`, uid))
	})

	t.Run("default group arbitration", func(t *testing.T) {
		uid := signup(t, repo, "groups@x.io").User.ID

		n, err := repo.NewGroups(ctx, uid, []entity.FavGroup{{Name: "home", IsDef: true, CreateTime: 200}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.NewFavorite(ctx, uid, []entity.StationGroup{{StationUUID: "s9"}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.NewGroups(ctx, uid, []entity.FavGroup{{Name: "older", IsDef: true, CreateTime: 150}})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.NewGroups(ctx, uid, []entity.FavGroup{{Name: "newer", IsDef: true, CreateTime: 300}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		groups, err := repo.QueryGroups(ctx, uid, "")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "newer", groups[0].Name)
		assert.True(t, groups[0].IsDef)

		favs, err := repo.QueryFavorites(ctx, uid)
		require.NoError(t, err)
		require.Len(t, favs, 1)
		assert.Equal(t, "newer", favs[0].GroupName)
		assert.Equal(t, "s9", favs[0].StationUUID)

		// a newer default named like a plain group leaves the default alone
		_, err = repo.NewGroups(ctx, uid, []entity.FavGroup{{Name: "rock", CreateTime: 310}})
		require.NoError(t, err)
		n, err = repo.NewGroups(ctx, uid, []entity.FavGroup{{Name: "rock", IsDef: true, CreateTime: 400}})
		require.NoError(t, err)
		assert.Zero(t, n)

		groups, err = repo.QueryGroups(ctx, uid, "")
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, 1, countRows(t, repo, `SELECT count(*) FROM fav_groups WHERE user_id = $1 AND is_def`, uid))
		assert.Equal(t, 1, countRows(t, repo, `SELECT count(*) FROM favorites WHERE user_id = $1`, uid))
	})

	t.Run("favorites are idempotent", func(t *testing.T) {
		uid := signup(t, repo, "fav@x.io").User.ID
		_, err := repo.NewGroups(ctx, uid, []entity.FavGroup{{Name: "main", IsDef: true, CreateTime: 10}})
		require.NoError(t, err)

		items := []entity.StationGroup{{StationUUID: "s1"}, {StationUUID: "s1", GroupName: "main"}}
		n, err := repo.NewFavorite(ctx, uid, items)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.NewFavorite(ctx, uid, items)
		require.NoError(t, err)
		assert.Zero(t, n)

		favs, err := repo.QueryFavorites(ctx, uid)
		require.NoError(t, err)
		require.Len(t, favs, 1)
		assert.Equal(t, "main", favs[0].GroupName)

		require.NoError(t, repo.DeleteFavorite(ctx, uid, []string{"s1"}, nil))
		favs, err = repo.QueryFavorites(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, favs)
	})
}
