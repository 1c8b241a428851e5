// FILE: internal/entity/user_entity.go
package entity

import "time"

type User struct {
	Id        uint
	Email     string
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bot is a chatbot owned by a user. All bots of a user share the user's token pool.
type Bot struct {
	Id        uint
	UserId    uint
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
