package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/oksasatya/appserv/config"
	"github.com/oksasatya/appserv/db"
	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/pkg/helpers"
)

// Seeds the product catalogue. Existing codes keep their id; description and status are refreshed.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	products := flag.String("products", "radio:Internet radio", "comma-separated code:description pairs")
	flag.Parse()

	if err := db.Up(cfg.PostgresDSN()); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	now := time.Now().Unix()
	for _, pair := range strings.Split(*products, ",") {
		code, desc, _ := strings.Cut(strings.TrimSpace(pair), ":")
		if code == "" {
			continue
		}
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO products (code, description, status, update_time)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE
			SET description = EXCLUDED.description, status = EXCLUDED.status, update_time = EXCLUDED.update_time
			RETURNING id`, code, desc, entity.StatusNormal, now).Scan(&id)
		if err != nil {
			logger.WithError(err).WithField("product", code).Fatal("failed to seed product")
		}
		logger.WithField("id", id).WithField("product", code).Info("seeded product")
	}
}
