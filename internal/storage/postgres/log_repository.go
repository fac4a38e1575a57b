package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

type logRepository struct {
	db *sql.DB
}

// NewLogRepository создаёт PostgreSQL-реализацию журнала аудита.
func NewLogRepository(store *Store) domain.AuditLog {
	return &logRepository{db: store.DB()}
}

func (r *logRepository) Append(actorID *int64, action, description string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO logs (user_id, action, description) VALUES ($1,$2,$3)
	`, actorID, action, description); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

func (r *logRepository) List(limit int) ([]domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT log_id, user_id, action, description, created_at
		FROM logs
		ORDER BY log_id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			entry  domain.AuditEntry
			userID sql.NullInt64
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Action,
			&entry.Description, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.UserID = nullableID(userID)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

var _ domain.AuditLog = (*logRepository)(nil)
