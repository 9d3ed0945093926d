package domain

import "time"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignActive      CampaignStatus = "active"
	CampaignUnconfirmed CampaignStatus = "unconfirmed"
	CampaignClosed      CampaignStatus = "closed"
	CampaignArchived    CampaignStatus = "archived"
)

// Classifiable reports whether messages may be assigned to a campaign in this state.
func (s CampaignStatus) Classifiable() bool {
	return s == CampaignActive || s == CampaignUnconfirmed
}

// Fallback campaign identity.
const (
	UncategorizedSlug        = "uncategorized"
	UncategorizedName        = "Uncategorized"
	UncategorizedDescription = "Messages that could not be automatically categorized"
	SystemCreator            = "system"
)

// Campaign groups messages about the same topic.
type Campaign struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description *string        `json:"description,omitempty"`
	Status      CampaignStatus `json:"status"`
	CreatedBy   *string        `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	// HasReferenceVector is true when the campaign takes part in similarity search.
	HasReferenceVector bool `json:"has_reference_vector"`
}

// CampaignCandidate is a campaign scored against a message embedding.
type CampaignCandidate struct {
	Campaign   Campaign
	Similarity float64
}

// CampaignStats aggregates stored messages per campaign.
type CampaignStats struct {
	CampaignID    int64   `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Status        string  `json:"status"`
	MessageCount  int64   `json:"message_count"`
	RecentCount   int64   `json:"recent_count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// NewCampaign is the input for creating a campaign.
type NewCampaign struct {
	Name        string
	Slug        string
	Description *string
	Status      CampaignStatus
	CreatedBy   string
}

// ClassificationResult is the campaign decision for one message.
// Confidence is a per-stage signal, not a calibrated probability.
type ClassificationResult struct {
	CampaignID   int64   `json:"campaign_id"`
	CampaignName string  `json:"campaign_name"`
	Confidence   float64 `json:"confidence"`
}
