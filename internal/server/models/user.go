package models

import "time"

// User is an account row. PasswordHash/Salt are argon2id values; the
// plaintext password never touches the database.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	Salt         []byte
	CreatedAt    time.Time
}
