package identity

import "time"

// User represents a registered account holder.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Gender       string
	BirthDate    string // YYYY-MM-DD
	Street       string
	City         string
	PostalCode   string
	Country      string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carries a login attempt.
type Credentials struct {
	Username string
	Password string
}

// Profile carries the user-editable fields.
type Profile struct {
	Email      string
	FirstName  string
	LastName   string
	Gender     string
	BirthDate  string
	Street     string
	City       string
	PostalCode string
	Country    string
}
