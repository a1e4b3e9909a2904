// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"strconv"
)

// ErrInvalidID is returned by ParseID for anything but a positive integer.
var ErrInvalidID = errors.New("id must be a positive integer")

// ParseID parses a decimal resource id. Only values >= 1 are accepted.
//
// Example:
//
//	id, err := utils.ParseID("42") // 42, nil
//	_, err = utils.ParseID("0")    // ErrInvalidID
func ParseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, ErrInvalidID
	}
	return n, nil
}

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty.
// Unlike a silent fallback, a malformed s is reported as an error so callers
// can reject it.
//
// Example:
//
//	n, _ := utils.AtoiDefault("", 10)   // 10
//	n, _ = utils.AtoiDefault("3", 10)   // 3
//	_, err := utils.AtoiDefault("x", 5) // error
func AtoiDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
