package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a back-office operator. Regular members never authenticate
// against this service directly.
type Admin struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
