package domain

import "time"

// Channel identifies the intake path a message arrived through.
type Channel string

const (
	ChannelAPI   Channel = "api"
	ChannelEmail Channel = "email"
)

// Channel sources used when the caller does not supply one.
const (
	ChannelSourceUnknown  = "unknown"
	ChannelSourceStalwart = "stalwart"
)

// MinContentLength is the minimum number of characters of trimmed content
// a message needs before it is classified.
const MinContentLength = 10

// ProcessingStatus is stored with every accepted message.
type ProcessingStatus string

const ProcessingStatusProcessed ProcessingStatus = "processed"

// InboundMessage is one (message, recipient) pair handed to the orchestrator.
// It is never mutated after creation.
type InboundMessage struct {
	ExternalID     string
	Channel        Channel
	ChannelSource  string
	SenderName     string
	SenderEmail    string
	RecipientEmail string
	Subject        string
	Body           string
	SentAt         time.Time
	CampaignHint   string

	// TransportVerified is set by callers that already ran the transport
	// duplicate check for ExternalID, such as the mail hook fan-out.
	TransportVerified bool
}

// SenderIdentity is the opaque hash of a normalized sender email.
type SenderIdentity string

// StoredMessage is the persisted record of an accepted message.
type StoredMessage struct {
	ID               int64
	ExternalID       string
	Channel          Channel
	ChannelSource    string
	PoliticianID     int64
	SenderHash       SenderIdentity
	CampaignID       int64
	Confidence       float64
	Embedding        []float32
	Language         string
	ReceivedAt       time.Time
	DuplicateRank    int
	ProcessingStatus ProcessingStatus
}
