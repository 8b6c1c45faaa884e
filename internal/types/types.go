package types

import (
	"time"
)

type User struct {
	Id              int        `json:"id"`
	Username        string     `json:"username"`
	EmailAddress    string     `json:"email_address,omitempty"`
	Password        string     `json:"-"`
	IsAdmin         bool       `json:"is_admin,omitempty"`
	Banned          bool       `json:"banned,omitempty"`
	LastPixelPlaced *time.Time `json:"last_pixel_placed,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at,omitempty"`
}

type Pixel struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Color     string    `json:"color"`
	UserId    int       `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
