package models

import "time"

// User mirrors the identity provider's record of a user. Rows are read-only
// here: the messaging core resolves display info and verifies that a token's
// subject still exists, nothing more.
type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `gorm:"uniqueIndex" json:"email"`
	PhotoUrl    string    `json:"photoUrl"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Participant is the projection of a User embedded in conversation payloads.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PhotoUrl    string `json:"photoUrl"`
}

func (u *User) AsParticipant() Participant {
	return Participant{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoUrl:    u.PhotoUrl,
	}
}
