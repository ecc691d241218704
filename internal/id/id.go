package id

import (
	"github.com/google/uuid"
)

// UUID generates a random UUID (version 4).
func UUID() string {
	return uuid.NewString()
}

// Ordered generates a time-ordered UUID (version 7).
// Falls back to a random UUID if the clock source fails.
func Ordered() string {
	u, err := uuid.NewV7()
	if err != nil {
		return UUID()
	}
	return u.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
