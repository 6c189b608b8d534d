package model

import "time"

// User represents a registered account. Anonymous visitors have no User;
// they are identified by a guest token until they register or log in.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for account registration. GuestToken, when
// present, claims the pending anonymous result held for that session.
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Password   string `json:"password" binding:"required,min=8,max=128"`
	GuestToken string `json:"guest_token" binding:"omitempty,uuid"`
}

// LoginRequest is the payload for user authentication. GuestToken behaves
// as in RegisterRequest.
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	Password   string `json:"password" binding:"required,min=8,max=128"`
	GuestToken string `json:"guest_token" binding:"omitempty,uuid"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// Admin represents a content-management account.
type Admin struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
