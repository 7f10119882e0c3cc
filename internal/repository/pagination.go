package repository

import "gorm.io/gorm"

const maxPageSize = 200

// pageScope limits a list query to one page. A non-positive page size
// returns every row; pages below one mean the first page.
func pageScope(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return tx
		}
		size := min(pageSize, maxPageSize)
		return tx.Limit(size).Offset((max(page, 1) - 1) * size)
	}
}
