package domain

import (
	"fmt"
	"regexp"

	"github.com/cesargomez89/vidfetch/internal/constants"
)

// supportedURL matches a YouTube host at the start of the string. It is a
// prefix match and accepts schemeless input.
var supportedURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsSupportedURL reports whether raw points at a supported media host.
func IsSupportedURL(raw string) bool {
	return supportedURL.MatchString(raw)
}

// ValidateSourceURL checks a submitted URL, returning a *ValidationError
// carrying the client-facing message.
func ValidateSourceURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: constants.MsgURLRequired}
	}
	if !IsSupportedURL(raw) {
		return &ValidationError{Field: "url", Message: constants.MsgInvalidURL}
	}
	return nil
}
