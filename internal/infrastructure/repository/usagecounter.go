package repository

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/config"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableUsageCounter counts the rows a user owns in the table mapped to each
// limit name.
type TableUsageCounter struct {
	db     *gorm.DB
	tables map[string]config.UsageTableConfig
	logger logger.Interface
}

// NewTableUsageCounter validates the table mapping up front; table and column
// names are interpolated into SQL and must be plain identifiers.
func NewTableUsageCounter(db *gorm.DB, tables map[string]config.UsageTableConfig, logger logger.Interface) (*TableUsageCounter, error) {
	mapped := make(map[string]config.UsageTableConfig, len(tables))
	for name, t := range tables {
		if !identifierPattern.MatchString(t.Table) {
			return nil, fmt.Errorf("usage table for limit %q: invalid table name %q", name, t.Table)
		}
		owner := t.OwnerColumn
		if owner == "" {
			owner = "user_id"
		}
		if !identifierPattern.MatchString(owner) {
			return nil, fmt.Errorf("usage table for limit %q: invalid owner column %q", name, owner)
		}
		t.OwnerColumn = owner
		mapped[name] = t
	}
	return &TableUsageCounter{db: db, tables: mapped, logger: logger}, nil
}

var _ entitlement.UsageSource = (*TableUsageCounter)(nil)

func (c *TableUsageCounter) CurrentUsage(ctx context.Context, userID uint, limitName string) (int64, error) {
	t, ok := c.tables[limitName]
	if !ok {
		return 0, fmt.Errorf("no usage table configured for limit %q", limitName)
	}

	query := db.GetTxFromContext(ctx, c.db).
		Table(t.Table).
		Where(t.OwnerColumn+" = ?", userID)
	if t.SoftDelete {
		query = query.Scopes(db.NotDeleted())
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		c.logger.Errorw("failed to count usage", "limit", limitName, "table", t.Table, "error", err)
		return 0, fmt.Errorf("failed to count %s: %w", limitName, err)
	}
	return count, nil
}
