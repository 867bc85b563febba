package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attendee is a person who can be booked into occasions. Attendees are
// created by their guardian (the owning user); the matching engine only
// reads them.
type Attendee struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`

	// Limit overrides the period's booking limit for this attendee.
	// Zero means no override.
	Limit int `json:"limit"`
}

// AgeAt returns the attendee's age in full years at the given time
func (a *Attendee) AgeAt(now time.Time) int {
	age := now.Year() - a.BirthDate.Year()
	if now.Month() < a.BirthDate.Month() ||
		(now.Month() == a.BirthDate.Month() && now.Day() < a.BirthDate.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
