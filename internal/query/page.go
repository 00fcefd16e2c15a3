package query

import (
	"fmt"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Page selects a window of a view. Zero values mean "everything".
type Page struct {
	Limit  int // 0 = no limit
	Offset int // skip first N records
}

// Paginate returns the window of records selected by page as a new slice.
//
// A positive Offset at or past the end of records is a paging error
// ([ErrOffsetOutOfBounds]) rather than an empty page, so callers can tell
// "no matches" from "paged too far".
func Paginate(records []record.Record, page Page) ([]record.Record, error) {
	if page.Limit < 0 || page.Offset < 0 {
		return nil, ErrInvalidPage
	}

	if page.Offset > 0 && page.Offset >= len(records) {
		return nil, fmt.Errorf("%w: offset %d, %d records", ErrOffsetOutOfBounds, page.Offset, len(records))
	}

	end := len(records)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}

	out := make([]record.Record, end-page.Offset)
	copy(out, records[page.Offset:end])

	return out, nil
}
