package dto

import "time"

type LoginInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"-"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

type AccountSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type LoginOutput struct {
	Account      AccountSummary `json:"account"`
	Tokens       TokenResponse  `json:"tokens"`
	SessionToken string         `json:"session_token"`
}
