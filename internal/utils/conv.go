package utils

import (
	"strconv"
)

// ParseID parses a positive numeric id from a path segment.
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// FormatID is the inverse of ParseID.
func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
