package errors

import (
	"strings"
	"unicode"
)

// ValidateSizeRange validates the minimum/maximum target size pair used by
// the scaler. The host contract requires minimum ≥ 0 and minimum < maximum;
// violating either is a configuration error detected before any layout work.
func ValidateSizeRange(minSize, maxSize float64) error {
	if minSize < 0 {
		return New(ErrCodeSizeRange, "minimum size must be >= 0, got %v", minSize)
	}
	if minSize >= maxSize {
		return New(ErrCodeSizeRange, "minimum size (%v) must be less than maximum size (%v)", minSize, maxSize)
	}
	return nil
}

// ValidateFieldName validates a column/field name taken from configuration.
// Field names index into record attribute rows, so anything that cannot be
// a header cell is rejected up front.
func ValidateFieldName(label, name string) error {
	if name == "" {
		return New(ErrCodeMissingField, "%s field is required", label)
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidConfig, "%s field name too long (max 256 characters)", label)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "%s field name contains control characters", label)
		}
	}
	return nil
}

// ValidateOptionalFieldName validates a field name that may be empty.
func ValidateOptionalFieldName(label, name string) error {
	if name == "" {
		return nil
	}
	return ValidateFieldName(label, name)
}

// ValidateOutputPath validates an output file path for safety. The host is
// responsible for writability; this checks only the obvious invalids.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidConfig, "output path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || (unicode.IsControl(r) && r != '\t') {
			return New(ErrCodeInvalidConfig, "output path contains invalid characters")
		}
	}
	if strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidConfig, "output path is a directory: %q", path)
	}
	return nil
}
