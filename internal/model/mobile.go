package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned when a mobile number cannot be parsed as an integer
var ErrInvalidKey = errors.New("invalid mobile number")

// ParseMobile normalizes a caller-supplied mobile number into the store key.
// Surrounding whitespace and a leading '+' are dropped before parsing.
func ParseMobile(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	if s == "" || strings.IndexFunc(s, isNotDigit) >= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	return n, nil
}

func isNotDigit(r rune) bool {
	return r < '0' || r > '9'
}

// MaskMobile masks a mobile number for logging (e.g., 35********67)
func MaskMobile(mobile int64) string {
	s := strconv.FormatInt(mobile, 10)
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
