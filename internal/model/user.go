package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	PublicID     string    `json:"public_id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}
