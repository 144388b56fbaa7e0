package util

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lowercase ULID, optionally prefixed ("pg_01j...").
func NewID(prefix string) string {
	id := strings.ToLower(ulid.Make().String())
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
