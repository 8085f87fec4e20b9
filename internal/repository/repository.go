package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/niju646/ReportSystem/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewStore wraps pool. Every query runs under timeout so a saturated pool
// cannot block a request indefinitely.
func NewStore(pool *pgxpool.Pool, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{pool: pool, timeout: timeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) FindUser(ctx context.Context, id int64, role model.Role) (model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user model.User
	row := s.pool.QueryRow(ctx, `SELECT id, role FROM users WHERE id = $1 AND role = $2`, id, string(role))
	if err := row.Scan(&user.ID, &user.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) InsertRefreshToken(ctx context.Context, token model.RefreshToken) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt)
	return err
}

// FindLiveRefreshToken matches on the exact token value and lets the
// database clock decide liveness.
func (s *Store) FindLiveRefreshToken(ctx context.Context, token string) (model.RefreshToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var row model.RefreshToken
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token, created_at, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND expires_at > NOW()
	`, token).Scan(&row.ID, &row.UserID, &row.Token, &row.CreatedAt, &row.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RefreshToken{}, ErrNotFound
		}
		return model.RefreshToken{}, err
	}
	return row, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (s *Store) ListStatusLogs(ctx context.Context, notificationID int64) ([]model.StatusLogEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT notification_id, type, recipient, message_sid, status, date_updated, error_message
		FROM status_logs
		WHERE notification_id = $1
		ORDER BY date_updated DESC
	`, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.StatusLogEntry
	for rows.Next() {
		var entry model.StatusLogEntry
		if err := rows.Scan(
			&entry.NotificationID,
			&entry.Type,
			&entry.Recipient,
			&entry.MessageSID,
			&entry.Status,
			&entry.DateUpdated,
			&entry.ErrorMessage,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
