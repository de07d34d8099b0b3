package models

import (
	"fmt"
	"strings"
)

// ReadMode selects how a chapter is navigated on screen
type ReadMode int

const (
	ReadModeScroll ReadMode = iota
	ReadModeCurl
	ReadModeCollection
)

// String returns the name of the mode
func (m ReadMode) String() string {
	switch m {
	case ReadModeScroll:
		return "scroll"
	case ReadModeCurl:
		return "curl"
	case ReadModeCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Paged reports whether the mode shows discrete pages
func (m ReadMode) Paged() bool {
	return m == ReadModeCurl || m == ReadModeCollection
}

// Next cycles to the following mode
func (m ReadMode) Next() ReadMode {
	return (m + 1) % 3
}

// ParseReadMode parses a mode name as produced by String
func ParseReadMode(s string) (ReadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scroll", "vertical":
		return ReadModeScroll, nil
	case "curl", "page":
		return ReadModeCurl, nil
	case "collection", "horizontal":
		return ReadModeCollection, nil
	}
	return ReadModeScroll, fmt.Errorf("unknown read mode %q", s)
}
