package domain

import "time"

// Template holds named subject/body guidance text fed into content
// generation. The "active" template is the most recently created one.
type Template struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
