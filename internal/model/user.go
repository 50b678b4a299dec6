package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account allowed to use the dashboard.
// Role: "viewer" | "storekeeper" | "admin"
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleViewer      = "viewer"
	RoleStorekeeper = "storekeeper"
	RoleAdmin       = "admin"
)

// Token types carried in the "typ" JWT claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
