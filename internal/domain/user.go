package domain

import "time"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Session is an opaque login token. The username doubles as the owner id
// for carts and orders.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
