package models

// ──────────────────── Users ────────────────────

type UserRecord struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
