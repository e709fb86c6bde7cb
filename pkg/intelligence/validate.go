package intelligence

import (
	"errors"
	"strings"
)

// Validation errors for memory fields checked at the creation boundary.
var (
	// ErrEmptyContent indicates blank memory content.
	ErrEmptyContent = errors.New("memory content is empty")

	// ErrEmptyMetadataKey indicates a metadata map with a blank key.
	ErrEmptyMetadataKey = errors.New("metadata key is empty")
)

// ClampImportance bounds an importance value to [0.0, 1.0].
func ClampImportance(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// ValidateContent checks that memory content is non-blank.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// ValidateMetadata checks that every metadata key is non-blank.
func ValidateMetadata(metadata map[string]string) error {
	for k := range metadata {
		if strings.TrimSpace(k) == "" {
			return ErrEmptyMetadataKey
		}
	}
	return nil
}
