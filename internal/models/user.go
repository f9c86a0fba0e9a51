// Package models contains the persistent entities and error types shared by
// every layer of the API.
package models

import "time"

// User is a registered identity. Rows are created at sign-up and never
// updated or deleted afterwards.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Handle       string    `gorm:"uniqueIndex;size:30;not null" json:"handle"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
