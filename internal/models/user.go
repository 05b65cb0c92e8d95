package models

import "time"

// User est le profil contenu dans la claim "User" du jeton d'accès
type User struct {
	Username       string   `json:"Username"`
	FullName       string   `json:"FullName"`
	Email          string   `json:"Email"`
	Avatar         string   `json:"Avatar"`
	Role           IDTitle  `json:"Role"`
	GiftingCountry IDName   `json:"GiftingCountry"`
	Currency       Currency `json:"Currency"`
}

type IDTitle struct {
	ID    int    `json:"Id"`
	Title string `json:"Title"`
}

type IDName struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type Currency struct {
	ID     string `json:"Id"`
	Symbol string `json:"Symbol"`
}

// Session est la paire de jetons et son expiration
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginRequest est le corps de POST /AdminAccount/Login
type LoginRequest struct {
	UserName string `json:"UserName"`
	Password string `json:"Password"`
}

// LoginResponse est la réponse de POST /AdminAccount/Login
type LoginResponse struct {
	Success      bool   `json:"Success"`
	Token        string `json:"Token"`
	RefreshToken string `json:"RefreshToken"`
	Message      string `json:"Message,omitempty"`
	User         *User  `json:"User,omitempty"`
}

// RefreshRequest est le corps de POST /Account/RefreshToken
type RefreshRequest struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

// RefreshResponse est la réponse de POST /Account/RefreshToken
type RefreshResponse struct {
	Success              bool   `json:"Success"`
	Token                string `json:"Token"`
	RefreshToken         string `json:"RefreshToken"`
	AccessTokenExpiresAt string `json:"AccessTokenExpiresAt"`
	Message              string `json:"Message,omitempty"`
}
