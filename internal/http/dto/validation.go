package dto

import (
	"strconv"

	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/domain"
)

// Validate checks the request body before any job state is touched.
func (r *ConvertRequest) Validate() error {
	return domain.ValidateSourceURL(r.URL)
}

// ParseLimit reads an optional positive limit query value. Empty means 0,
// which lets the service apply its default.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &domain.ValidationError{Field: "limit", Message: constants.MsgInvalidLimit}
	}
	return n, nil
}
