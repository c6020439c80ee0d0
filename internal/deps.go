package internal

import (
	"bridge/waitlist-api/config"
	"bridge/waitlist-api/db"
	"bridge/waitlist-api/internal/service"
	"bridge/waitlist-api/internal/store"
	"bridge/waitlist-api/pkg/ratelimit"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var openDB = db.New

type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Store     store.SignupStore
	Intake    *service.Intake
	Confirmer *service.Confirmer
	Limiter   ratelimit.Limiter
	Mailer    service.Mailer
	MailQueue *service.MailQueue
	Redis     *redis.Client
}

// NewDeps opens the database, picks the mail provider and rate limit
// backend and starts the mail workers
func NewDeps(cfg *config.Config) (d *Deps, err error) {
	conn, err := openDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	defer func() {
		if err != nil {
			closeDB(conn)
		}
	}()

	mailer, err := service.NewMailer(service.MailConfig{
		Provider:     cfg.Mail.Provider,
		From:         cfg.Mail.From,
		FromName:     cfg.Mail.FromName,
		ReplyTo:      cfg.Mail.ReplyTo,
		SMTPHost:     cfg.Mail.SMTP.Host,
		SMTPPort:     cfg.Mail.SMTP.Port,
		SMTPUsername: cfg.Mail.SMTP.Username,
		SMTPPassword: cfg.Mail.SMTP.Password,
		ResendAPIKey: cfg.Mail.ResendAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer, %w", err)
	}

	d = &Deps{
		Config: cfg,
		DB:     conn,
		Store:  store.NewGormStore(conn),
		Mailer: mailer,
	}

	switch cfg.RateLimit.Backend {
	case "redis":
		d.Redis = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := d.Redis.Ping(ctx).Err(); err != nil {
			d.Redis.Close()
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}

		d.Limiter = ratelimit.NewRedisLimiter(d.Redis, cfg.RateLimit.Max, cfg.RateLimit.Window)
	default:
		d.Limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	}

	d.MailQueue = service.NewMailQueue(mailer, cfg.Mail.Workers, cfg.Mail.QueueSize)
	d.MailQueue.StartWorkerPool()

	d.Intake = service.NewIntake(d.Store, d.MailQueue, service.IntakeConfig{
		Sources:       cfg.Waitlist.Sources,
		TokenValidity: cfg.Token.Validity,
		BaseURL:       cfg.App.BaseURL,
	})
	d.Confirmer = service.NewConfirmer(d.Store)

	zap.L().Info("Dependencies initialized",
		zap.String("database", cfg.Database.Driver),
		zap.String("mail_provider", mailer.Provider()),
		zap.String("ratelimit_backend", cfg.RateLimit.Backend))

	return d, nil
}

func closeDB(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Close drains the mail queue and releases every connection
func (d *Deps) Close(ctx context.Context) error {
	var err error

	if d.MailQueue != nil {
		err = multierr.Append(err, d.MailQueue.Shutdown(ctx))
	}

	if d.Limiter != nil {
		err = multierr.Append(err, d.Limiter.Close())
	}

	if d.DB != nil {
		err = multierr.Append(err, closeDB(d.DB))
	}

	return err
}
