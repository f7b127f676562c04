package domain

import "time"

// User is the directory entity owned by the external user directory.
// This core only mutates the presence fields (Online, LastSeen);
// credentials and profile data are managed elsewhere.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"lastSeen"`
}
