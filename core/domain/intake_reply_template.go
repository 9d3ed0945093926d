package domain

import "time"

// ReplyTemplate is a canned reply a politician's office sends for a campaign.
type ReplyTemplate struct {
	ID           int64     `json:"id"`
	PoliticianID int64     `json:"politician_id"`
	CampaignID   int64     `json:"campaign_id"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReplyTemplateFilter for listing templates
type ReplyTemplateFilter struct {
	PoliticianID *int64
	CampaignID   *int64
	ActiveOnly   bool
	Limit        int
	Offset       int
}
