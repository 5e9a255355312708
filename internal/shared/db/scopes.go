package db

import (
	"gorm.io/gorm"
)

// NotDeleted filters out soft-deleted rows. Needed for raw Table() queries,
// which skip gorm's own deleted_at handling.
//
//	db.Table("projects").Scopes(db.NotDeleted()).Where("owner_id = ?", id).Count(&n)
func NotDeleted() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NULL")
	}
}
