package domain

import "time"

// Politician is a message recipient. Rows are owned by the datastore and
// read-only to the intake pipeline.
type Politician struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	AdditionalEmails []string  `json:"additional_emails,omitempty"`
	Party            *string   `json:"party,omitempty"`
	Country          *string   `json:"country,omitempty"`
	Region           *string   `json:"region,omitempty"`
	Position         *string   `json:"position,omitempty"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// PoliticianFilter for listing politicians
type PoliticianFilter struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}
