package models

import "time"

type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never leaves the server
	CreatedAt    time.Time `json:"created_at"`
}
