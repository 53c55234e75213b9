package model

import "time"

type UserID string // local user id e.g. 3GFQNuSg3dPqDD1emxv5bqX42oxq

type CreateUserParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type User struct {
	ID        UserID    `db:"ID" json:"id"`
	CreatedAt time.Time `db:"CreatedAt" json:"-"`
	Username  string    `db:"Username" json:"username"`
	Email     string    `db:"Email" json:"email"`
	Password  string    `db:"Password" json:"-"`
}

// Caller is the authenticated identity handed to the services by the gateway.
// The services never see credentials.
type Caller struct {
	ID       UserID
	Username string
}
