package ids

import "github.com/segmentio/ksuid"

// New returns a k-sortable, globally unique identifier.
func New() string {
	return ksuid.New().String()
}

// Valid reports whether s parses as an identifier produced by New.
func Valid(s string) bool {
	_, err := ksuid.Parse(s)
	return err == nil
}
