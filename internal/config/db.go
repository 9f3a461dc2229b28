package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables.
// DATABASE_URL wins over the individual DB_* settings.
func LoadDBConfig() (*DBConfig, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return &DBConfig{DSN: url}, nil
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DATABASE_URL or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database, retrying
// with exponential backoff while the server comes up
func ConnectDB(ctx context.Context, cfg *DBConfig, log *logrus.Logger) (*pgxpool.Pool, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = time.Minute

	attempt := 0
	connect := func() (*pgxpool.Pool, error) {
		attempt++
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			// a malformed DSN will not fix itself
			return nil, backoff.Permanent(err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait.String()}).
			Warn("Failed to connect to database")
	}

	pool, err := backoff.RetryNotifyWithData(connect, backoff.WithContext(policy, ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", attempt, err)
	}
	log.Info("Successfully connected to PostgreSQL")
	return pool, nil
}

// Execer runs a statement; *pgxpool.Pool satisfies it
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema is the DDL applied by AutoMigrate. Every statement is idempotent.
const Schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY, -- messenger user id
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('citizen', 'moderator', 'official', 'admin')) DEFAULT 'citizen',
		registered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		id BIGSERIAL PRIMARY KEY,
		author_id BIGINT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		photo_ref TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'На модерации' CHECK (status IN (
			'На модерации', 'Новое', 'В обработке', 'Проверка',
			'Подтверждено', 'Решено', 'Отклонено', 'Отклонено модератором'
		)),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (author_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS status_updates (
		id BIGSERIAL PRIMARY KEY,
		report_id BIGINT NOT NULL,
		official_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
	CREATE INDEX IF NOT EXISTS idx_reports_author_id ON reports(author_id);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	CREATE INDEX IF NOT EXISTS idx_status_updates_report_id ON status_updates(report_id, created_at);

    -- Function to update updated_at column
    CREATE OR REPLACE FUNCTION update_updated_at_column()
    RETURNS TRIGGER AS $$
    BEGIN
       NEW.updated_at = NOW();
       RETURN NEW;
    END;
    $$ language 'plpgsql';

    -- Trigger for reports table
    DO $$
    BEGIN
        IF NOT EXISTS (
            SELECT 1
            FROM pg_trigger
            WHERE tgname = 'set_reports_updated_at' AND tgrelid = 'reports'::regclass
        ) THEN
            CREATE TRIGGER set_reports_updated_at
            BEFORE UPDATE ON reports
            FOR EACH ROW
            EXECUTE FUNCTION update_updated_at_column();
        END IF;
    END
    $$;
	`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, log *logrus.Logger) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	log.Info("AutoMigrate applied successfully")
	return nil
}
