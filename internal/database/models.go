package database

import "time"

type User struct {
	Id              int
	Username        string
	EmailAddress    string
	PasswordHash    string
	IsAdmin         bool
	Banned          bool
	LastPixelPlaced *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PixelAction struct {
	Id        int
	X         int
	Y         int
	Color     string
	AccountId int
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type PlacePixelParams struct {
	AccountId int
	X         int
	Y         int
	Color     string
}
