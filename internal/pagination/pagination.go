// Package pagination slices ordered result lists by page and page size.
package pagination

import "github.com/fd1az/reserve-relayer/internal/apperror"

// Paginate returns list[(page-1)*perPage : (page-1)*perPage+perPage].
// page defaults to 1 and perPage to len(list). A page past the end yields an
// empty slice, never an error.
func Paginate[T any](list []T, page, perPage *int) ([]T, error) {
	if list == nil {
		return nil, apperror.InvalidArgument("list is required")
	}

	p := 1
	if page != nil {
		p = *page
	}
	if p < 1 {
		return nil, apperror.OutOfRange("Page should start at 1")
	}

	size := len(list)
	if perPage != nil {
		size = *perPage
		if size < 1 {
			return nil, apperror.OutOfRange("per-page count must be >= 1")
		}
	}
	if size == 0 || len(list) == 0 {
		return []T{}, nil
	}

	// Compare before multiplying so huge page values cannot wrap around.
	if p-1 > (len(list)-1)/size {
		return []T{}, nil
	}

	start := (p - 1) * size
	end := start + min(size, len(list)-start)
	return list[start:end], nil
}

// Int returns a pointer to v. Handy for optional page arguments.
func Int(v int) *int {
	return &v
}
