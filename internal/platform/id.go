package platform

import "github.com/google/uuid"

// NewID returns a random identifier for notifications and websocket clients.
func NewID() string {
	return uuid.New().String()
}
