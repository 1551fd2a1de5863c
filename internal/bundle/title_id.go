package bundle

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidTitleID = errors.New("bundle: title id must be 16 hex characters")

	titleIDRegex = regexp.MustCompile(`^[0-9A-Fa-f]{16}$`)
)

// NormalizeTitleID validates a title id string and returns it in the
// canonical external form: exactly 16 uppercase hex characters.
func NormalizeTitleID(id string) (string, error) {
	if !titleIDRegex.MatchString(id) {
		return "", ErrInvalidTitleID
	}
	return strings.ToUpper(id), nil
}

// ParseTitleID parses a 16-hex-character title id into its numeric form.
func ParseTitleID(id string) (uint64, error) {
	normalized, err := NormalizeTitleID(id)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(normalized, 16, 64)
	if err != nil {
		return 0, ErrInvalidTitleID
	}
	return v, nil
}
