package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// LogRepository — in-memory журнал аудита, новые записи добавляются в конец.
type LogRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
	nextID  int64
}

// NewLogRepository возвращает пустой журнал.
func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

func (r *LogRepository) Append(actorID *int64, action, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.entries = append(r.entries, domain.AuditEntry{
		ID:          r.nextID,
		UserID:      actorID,
		Action:      action,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})

	return nil
}

// List возвращает последние записи, новые первыми.
func (r *LogRepository) List(limit int) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]domain.AuditEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, r.entries[i])
	}

	return result, nil
}

var _ domain.AuditLog = (*LogRepository)(nil)
