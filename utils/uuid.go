package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a fresh UUIDv4 string. Items, bids, notifications
// and self-registered users all take their ids from here.
func GenerateID() string {
	return uuid.New().String()
}
