package errors

import (
	"math"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxPercent is the largest expansion percentage accepted from callers.
const MaxPercent = 1000

// ValidateProjectName validates a project name supplied by a user.
//
// The validation rules are intentionally conservative:
//   - No empty or whitespace-only names
//   - No control characters
//   - Maximum length of 200 characters
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "project name cannot be empty")
	}

	if len(name) > 200 {
		return New(ErrCodeInvalidInput, "project name too long (max 200 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "project name contains invalid control characters")
		}
	}

	return nil
}

// ValidateFilename validates an uploaded document filename.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidFilename, "filename cannot be empty")
	}

	if len(filename) > 255 {
		return New(ErrCodeInvalidFilename, "filename too long (max 255 characters)")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidFilename, "filename cannot contain path separators")
	}

	if strings.Contains(filename, "..") || strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidFilename, "filename cannot be hidden or contain '..'")
	}

	for _, r := range filename {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "filename contains invalid characters")
		}
	}

	return nil
}

// ValidateID checks that id is a canonical UUID as issued by the store.
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidID, err, "invalid id %q", id)
	}
	return nil
}

// ValidatePercent checks an expansion percentage.
// Negative, non-finite and absurdly large values are rejected.
func ValidatePercent(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return New(ErrCodeInvalidPercent, "expansion percentage must be a finite number")
	}
	if p < 0 {
		return New(ErrCodeInvalidPercent, "expansion percentage must be >= 0, got %g", p)
	}
	if p > MaxPercent {
		return New(ErrCodeInvalidPercent, "expansion percentage must be <= %d, got %g", MaxPercent, p)
	}
	return nil
}
