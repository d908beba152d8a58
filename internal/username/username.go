// Package username normalises and validates username candidates and runs the
// debounced availability check behind the username field.
package username

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 3
	MaxLength = 30
)

var (
	ErrEmpty    = errors.New("username is required")
	ErrTooShort = errors.New("username must be at least 3 characters")
	ErrTooLong  = errors.New("username must be at most 30 characters")
	ErrCharset  = errors.New("username may only contain a-z, 0-9 and _")
)

// Normalize lower-cases s and drops every character outside [a-z0-9_].
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return -1
		}
	}, strings.ToLower(s))
}

// Validate checks an already-normalised candidate.
func Validate(s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return ErrEmpty
	case n < MinLength:
		return ErrTooShort
	case n > MaxLength:
		return ErrTooLong
	case Normalize(s) != s:
		return ErrCharset
	}
	return nil
}
