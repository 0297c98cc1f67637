// Package container builds every component once at process start.
package container

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/appserv/config"
	"github.com/oksasatya/appserv/internal/application"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/internal/infrastructure"
	"github.com/oksasatya/appserv/internal/infrastructure/search"
	"github.com/oksasatya/appserv/internal/infrastructure/storage"
	"github.com/oksasatya/appserv/internal/infrastructure/verification"
	"github.com/oksasatya/appserv/internal/jobs"
	"github.com/oksasatya/appserv/internal/metrics"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/mailer"
	mailtpl "github.com/oksasatya/appserv/pkg/mailer/templates"
)

// Container is the application context handed to the router and the scheduler.
type Container struct {
	Cfg      *config.Config
	Logger   *logrus.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	// Redis is nil when not configured or unreachable; rate limits then fail open.
	Redis *redis.Client
	Repo  repository.Repository

	VerifyStore repository.VerificationStore
	Avatars     repository.AvatarStore
	Index       *search.UserIndex
	Mail        *mailer.Dispatcher
	Cookies     *helpers.Manager

	Verify      *application.VerificationService
	Accounts    *application.AccountService
	Preferences *application.PreferenceService
	Resolver    *application.AuthResolver
	Scheduler   *jobs.Scheduler

	closers []func()
}

func (c *Container) onClose(fn func()) { c.closers = append(c.closers, fn) }

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// New wires the application from cfg. On error everything acquired so far is released.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (_ *Container, err error) {
	c := &Container{Cfg: cfg, Logger: logger, Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()
	errb := oops.In("container")

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.NewCollector(c.Registry)

	c.connectRedis(ctx)

	issuer, jwt, err := newIssuer(cfg)
	if err != nil {
		return nil, errb.With("token_mode", cfg.TokenMode).Wrap(err)
	}
	c.Repo, err = infrastructure.OpenRepository(ctx, cfg, issuer)
	if err != nil {
		return nil, errb.With("component", "repository").Wrap(err)
	}
	c.onClose(c.Repo.Close)

	memory, err := c.buildVerifyStore()
	if err != nil {
		return nil, errb.With("component", "verification").Wrap(err)
	}
	if err := c.buildAvatars(ctx); err != nil {
		return nil, errb.With("component", "avatars").Wrap(err)
	}
	if err := c.buildIndex(); err != nil {
		return nil, errb.With("component", "search").Wrap(err)
	}
	if err := c.buildMail(); err != nil {
		return nil, errb.With("component", "mail").Wrap(err)
	}

	brand := mailtpl.Brand{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL}
	c.Verify = application.NewVerificationService(c.VerifyStore, c.Mail, brand, application.VerifyConfig{
		CaptchaTTL:     cfg.CaptchaTTL,
		CodeTTL:        cfg.EmailCodeTTL,
		ResendInterval: cfg.ResendInterval,
	})
	c.Accounts = &application.AccountService{
		Repo:    c.Repo,
		Verify:  c.Verify,
		Avatars: c.Avatars,
		Mail:    c.Mail,
		Brand:   brand,
		Metrics: c.Metrics,
		Logger:  logger,
	}
	if c.Index != nil {
		c.Accounts.Index = c.Index
	}
	c.Preferences = &application.PreferenceService{Repo: c.Repo, Metrics: c.Metrics}
	c.Resolver = application.NewAuthResolver(c.Repo, cfg.TokenMode, jwt, cfg.SessionRefresh)

	sched := &jobs.Scheduler{
		Sessions: c.Repo,
		Catalog:  c.Repo,
		Avatars:  c.Avatars,
		Metrics:  c.Metrics,
		Logger:   logger,
	}
	if memory != nil {
		sched.Verify = memory
	}
	if c.Scheduler, err = jobs.New(cfg.SweepSchedule, sched); err != nil {
		return nil, errb.With("schedule", cfg.SweepSchedule).Wrap(err)
	}
	return c, nil
}

func newIssuer(cfg *config.Config) (repository.TokenIssuer, *helpers.JWTManager, error) {
	switch cfg.TokenMode {
	case application.TokenModeOpaque:
		return helpers.NewOpaqueIssuer(cfg.SessionExpire), nil, nil
	case application.TokenModeJWT:
		m := helpers.NewJWTManager(cfg.JWTSecret, cfg.SessionExpire)
		return m, m, nil
	}
	return nil, nil, fmt.Errorf("unknown token mode %q", cfg.TokenMode)
}

func (c *Container) connectRedis(ctx context.Context) {
	if c.Cfg.RedisAddr == "" {
		return
	}
	rdb := helpers.NewRedisClient(c.Cfg.RedisAddr, c.Cfg.RedisPassword, c.Cfg.RedisDB)
	if err := helpers.PingRedis(ctx, rdb); err != nil {
		c.Logger.WithError(err).Warn("redis unavailable")
		_ = rdb.Close()
		return
	}
	c.Redis = rdb
	c.onClose(func() { _ = rdb.Close() })
}

// buildVerifyStore returns the memory store when that backend is selected so it can be swept.
func (c *Container) buildVerifyStore() (*verification.MemoryStore, error) {
	switch c.Cfg.VerifyBackend {
	case "redis":
		if c.Redis == nil {
			return nil, fmt.Errorf("verify backend redis needs a reachable REDIS_ADDR")
		}
		c.VerifyStore = verification.NewRedisStore(c.Redis, c.Cfg.AppName+":")
		return nil, nil
	case "memory":
		m := verification.NewMemoryStore()
		c.VerifyStore = m
		return m, nil
	}
	return nil, fmt.Errorf("unknown verify backend %q", c.Cfg.VerifyBackend)
}

func (c *Container) buildAvatars(ctx context.Context) error {
	switch c.Cfg.AvatarBackend {
	case "local":
		s, err := storage.NewLocalStore(c.Cfg.AvatarDir)
		if err != nil {
			return err
		}
		c.Avatars = s
		return nil
	case "gcs":
		if c.Cfg.GCSBucket == "" {
			return fmt.Errorf("avatar backend gcs needs GCS_BUCKET")
		}
		client, err := storage.NewGCSClient(ctx, c.Cfg.GCSCredentialsJSONPath)
		if err != nil {
			return err
		}
		c.onClose(func() { _ = client.Close() })
		c.Avatars = storage.NewGCSStore(client, c.Cfg.GCSBucket, "avatars/")
		return nil
	}
	return fmt.Errorf("unknown avatar backend %q", c.Cfg.AvatarBackend)
}

func (c *Container) buildIndex() error {
	addrs := c.Cfg.ESAddrs()
	if len(addrs) == 0 {
		return nil
	}
	es, err := search.NewESClient(addrs, c.Cfg.ElasticsearchUser, c.Cfg.ElasticsearchPass)
	if err != nil {
		return err
	}
	c.Index = search.NewUserIndex(es, c.Cfg.ESUsersIndex)
	return nil
}

// buildMail picks the sender: log only, the queue drained by the email worker, or Mailgun directly.
func (c *Container) buildMail() error {
	var sender mailer.Sender
	switch {
	case !c.Cfg.MailSendEnabled:
		sender = mailer.LogSender{Logger: c.Logger}
	case c.Cfg.MailViaQueue:
		pub, err := helpers.NewRabbitPublisher(c.Cfg.RabbitMQURL, c.Cfg.RabbitMQEmailQueue)
		if err != nil {
			return err
		}
		c.onClose(pub.Close)
		sender = mailer.NewQueueSender(pub)
	default:
		if c.Cfg.MailgunDomain == "" || c.Cfg.MailgunAPIKey == "" {
			return fmt.Errorf("mailgun not configured")
		}
		sender = mailer.NewMailgun(c.Cfg.MailgunDomain, c.Cfg.MailgunAPIKey, c.Cfg.MailgunSender)
	}
	c.Mail = mailer.NewDispatcher(sender, c.Logger)
	// pending mails finish before the publisher is closed
	c.onClose(c.Mail.Wait)
	return nil
}
