package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"MailBlast/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS mailblast_settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres persists credentials as two rows of a key/value table so they
// survive restarts until an explicit Clear.
type Postgres struct {
	Pool *pgxpool.Pool
	Log  *zap.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects, waits for the database to answer and ensures the
// settings table exists. connectTimeout bounds the startup wait.
func NewPostgres(
	ctx context.Context,
	conn string,
	connectTimeout time.Duration,
	logger *zap.Logger,
) (*Postgres, error) {

	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = connectTimeout

	ping := func() error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not ready", zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Postgres{Pool: pool, Log: logger}, nil
}

func (s *Postgres) Close() {
	s.Pool.Close()
}

func (s *Postgres) Save(ctx context.Context, c models.Credentials) (err error) {
	if !c.Complete() {
		return errors.New("credentials: identity and secret are required")
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	for key, value := range map[string]string{
		KeyIdentity: c.Identity,
		KeySecret:   c.Secret,
	} {
		_, err = tx.Exec(ctx,
			`INSERT INTO mailblast_settings (key, value, updated_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (key) DO UPDATE
			 SET value = EXCLUDED.value,
			     updated_at = NOW()`,
			key,
			value,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.Log.Info("credentials saved", zap.String("identity", c.Identity))
	return nil
}

func (s *Postgres) Load(ctx context.Context) (models.Credentials, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT key, value
		 FROM mailblast_settings
		 WHERE key IN ($1, $2)`,
		KeyIdentity,
		KeySecret,
	)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Credentials{}, fmt.Errorf("scan credentials: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	return fromValues(values)
}

func (s *Postgres) Clear(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx,
		`DELETE FROM mailblast_settings
		 WHERE key IN ($1, $2)`,
		KeyIdentity,
		KeySecret,
	)
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	s.Log.Info("credentials cleared")
	return nil
}
