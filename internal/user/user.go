// Package user defines the user model used throughout the application,
// particularly for authentication and ownership of journal records.
package user

import "time"

// User represents a registered journal author.
// The email is the lookup key at sign-in; it is not guaranteed to be unique.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"userId" bson:"userId"`

	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Email     string `json:"email" bson:"email"`

	// PasswordHash is a bcrypt hash. The plaintext password is never stored
	// and User values are never rendered in API responses.
	PasswordHash string `json:"passwordHash" bson:"password"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
