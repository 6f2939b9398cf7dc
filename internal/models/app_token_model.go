package models

import "time"

// AppToken holds one Facebook app registration together with its long-lived
// user token. AccessToken is stored encrypted; repositories hand it out as
// the ciphertext and callers decrypt on use.
type AppToken struct {
	ID             int64     `db:"id" json:"id"`
	AppName        string    `db:"app_name" json:"app_name"`
	AppID          string    `db:"app_id" json:"app_id"`
	AppSecret      string    `db:"app_secret" json:"-"`
	AccessToken    string    `db:"access_token" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Page is one Facebook Page reachable through an app token, as returned by
// the /me/accounts listing.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category"`
	AppName     string `json:"app_name"`
}
