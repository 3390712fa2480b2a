package repository

import "errors"

// ErrVersionConflict is returned when an optimistic update matched no row
// because the stored version moved on.
var ErrVersionConflict = errors.New("version conflict")

func pageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
