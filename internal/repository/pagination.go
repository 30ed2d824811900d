package repository

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps page and limit to sane values. A non-positive limit
// falls back to the default page size.
func NormalizePage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return page, limit
}

// paginate is a no-op when limit is zero or negative, which callers use to
// fetch everything (for example CSV export).
func paginate(page int, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}
