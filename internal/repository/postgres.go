// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/virtmarket/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrOrderNotFound возвращается, если заявка с указанным идентификатором отсутствует.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder возвращается при вставке заявки с уже существующим идентификатором.
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrBanNotFound возвращается, если активной блокировки пользователя нет.
	ErrBanNotFound = errors.New("ban not found")
)

const orderColumns = `id, order_type, project, server_name, server_id, user_id, username,
	amount, price, contact, refund_enabled, status, source, created_at, updated_at`

const banColumns = `user_id, username, reason, banned_by, banned_at, banned_until`

// PostgresRepository предоставляет доступ к хранилищу заявок и блокировок в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool

	maxRetries uint64
	retryBase  time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:       pool,
		maxRetries: 3,
		retryBase:  100 * time.Millisecond,
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках БД с экспоненциальной задержкой.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*model.Order, error) {
	var (
		o         model.Order
		orderType string
		status    string
	)
	err := row.Scan(
		&o.ID, &orderType, &o.Project, &o.ServerName, &o.ServerID, &o.UserID, &o.Username,
		&o.Amount, &o.Price, &o.Contact, &o.RefundEnabled, &status, &o.Source, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.OrderType = model.OrderType(orderType)
	o.Status = model.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()

	return &o, nil
}

// InsertOrder сохраняет заявку и возвращает строку в том виде, в каком она записана в БД.
func (r *PostgresRepository) InsertOrder(ctx context.Context, o model.Order) (*model.Order, error) {
	var stored *model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (`+orderColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			o.ID, string(o.OrderType), o.Project, o.ServerName, o.ServerID, o.UserID, o.Username,
			o.Amount, o.Price, o.Contact, o.RefundEnabled, string(o.Status), o.Source, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		stored, err = scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, o.ID))
		if err != nil {
			return fmt.Errorf("read back order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// GetOrder возвращает заявку по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o *model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		o, err = scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// buildOrderFilter собирает условие WHERE из непустых полей фильтра.
func buildOrderFilter(f model.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}

	if f.OrderType != "" {
		add("order_type", string(f.OrderType))
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if f.UserID != 0 {
		add("user_id", f.UserID)
	}
	if f.Project != "" {
		add("project", f.Project)
	}
	if f.Source != "" {
		add("source", f.Source)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListOrders возвращает заявки, удовлетворяющие всем условиям фильтра, от новых к старым.
func (r *PostgresRepository) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	where, args := buildOrderFilter(f)
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC`

	var orders []model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		orders = orders[:0]

		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("select orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			orders = append(orders, *o)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateOrderStatus меняет статус заявки и обновляет updated_at.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
			id, string(status), at,
		)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// UpdateOrderFields обновляет переданные поля заявки, остальные сохраняют прежние значения.
func (r *PostgresRepository) UpdateOrderFields(ctx context.Context, id string, patch model.OrderPatch, at time.Time) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE orders
			 SET amount = COALESCE($2, amount),
			     price = COALESCE($3, price),
			     contact = COALESCE($4, contact),
			     updated_at = $5
			 WHERE id = $1`,
			id, patch.Amount, patch.Price, patch.Contact, at,
		)
		if err != nil {
			return fmt.Errorf("update order fields: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// DeleteOrder удаляет заявку и возвращает удалённую запись.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id string) (*model.Order, error) {
	var deleted *model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = scanOrder(r.pool.QueryRow(ctx,
			`DELETE FROM orders WHERE id = $1 RETURNING `+orderColumns, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// AggregateByServer группирует заявки по серверу: число уникальных пользователей и сумма виртов.
// Пустой project означает все проекты.
func (r *PostgresRepository) AggregateByServer(ctx context.Context, orderType model.OrderType, status model.OrderStatus, project string) ([]model.ServerStats, error) {
	where, args := buildOrderFilter(model.OrderFilter{
		OrderType: orderType,
		Status:    status,
		Project:   project,
	})
	query := `SELECT server_name, server_id, COUNT(DISTINCT user_id), COALESCE(SUM(amount), 0)
		FROM orders` + where + `
		GROUP BY server_name, server_id
		ORDER BY server_id, server_name`

	var stats []model.ServerStats

	err := r.withRetry(ctx, func(ctx context.Context) error {
		stats = stats[:0]

		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("aggregate orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s model.ServerStats
			if err := rows.Scan(&s.ServerName, &s.ServerID, &s.Users, &s.TotalAmount); err != nil {
				return fmt.Errorf("scan stats: %w", err)
			}
			stats = append(stats, s)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func scanBan(row scanner) (*model.BannedUser, error) {
	var b model.BannedUser
	if err := row.Scan(&b.UserID, &b.Username, &b.Reason, &b.BannedBy, &b.BannedAt, &b.BannedUntil); err != nil {
		return nil, err
	}

	b.BannedAt = b.BannedAt.UTC()
	if b.BannedUntil != nil {
		until := b.BannedUntil.UTC()
		b.BannedUntil = &until
	}
	return &b, nil
}

// IsBanned проверяет наличие активной блокировки пользователя на момент now.
func (r *PostgresRepository) IsBanned(ctx context.Context, userID int64, now time.Time) (bool, error) {
	var banned bool

	err := r.withRetry(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM banned_users
				WHERE user_id = $1 AND (banned_until IS NULL OR banned_until > $2)
			)`,
			userID, now,
		).Scan(&banned)
		if err != nil {
			return fmt.Errorf("check ban: %w", err)
		}
		return nil
	})

	return banned, err
}

// GetBan возвращает активную блокировку пользователя.
func (r *PostgresRepository) GetBan(ctx context.Context, userID int64, now time.Time) (*model.BannedUser, error) {
	var ban *model.BannedUser

	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		ban, err = scanBan(r.pool.QueryRow(ctx,
			`SELECT `+banColumns+` FROM banned_users
			 WHERE user_id = $1 AND (banned_until IS NULL OR banned_until > $2)`,
			userID, now,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBanNotFound
			}
			return fmt.Errorf("get ban: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ban, nil
}

// UpsertBan создаёт или перезаписывает блокировку пользователя.
func (r *PostgresRepository) UpsertBan(ctx context.Context, ban model.BannedUser) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO banned_users (`+banColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id) DO UPDATE SET
			     username = EXCLUDED.username,
			     reason = EXCLUDED.reason,
			     banned_by = EXCLUDED.banned_by,
			     banned_at = EXCLUDED.banned_at,
			     banned_until = EXCLUDED.banned_until`,
			ban.UserID, ban.Username, ban.Reason, ban.BannedBy, ban.BannedAt, ban.BannedUntil,
		)
		if err != nil {
			return fmt.Errorf("upsert ban: %w", err)
		}
		return nil
	})
}

// DeleteBan снимает блокировку пользователя.
func (r *PostgresRepository) DeleteBan(ctx context.Context, userID int64) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM banned_users WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("delete ban: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBanNotFound
		}
		return nil
	})
}

// ListBans возвращает активные на момент now блокировки.
func (r *PostgresRepository) ListBans(ctx context.Context, now time.Time) ([]model.BannedUser, error) {
	var bans []model.BannedUser

	err := r.withRetry(ctx, func(ctx context.Context) error {
		bans = bans[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT `+banColumns+` FROM banned_users
			 WHERE banned_until IS NULL OR banned_until > $1
			 ORDER BY banned_at DESC`,
			now,
		)
		if err != nil {
			return fmt.Errorf("select bans: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBan(rows)
			if err != nil {
				return fmt.Errorf("scan ban: %w", err)
			}
			bans = append(bans, *b)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bans, nil
}

// PurgeExpiredBans удаляет истёкшие блокировки и возвращает их количество.
func (r *PostgresRepository) PurgeExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	var removed int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM banned_users WHERE banned_until IS NOT NULL AND banned_until <= $1`,
			now,
		)
		if err != nil {
			return fmt.Errorf("purge bans: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})

	return removed, err
}
