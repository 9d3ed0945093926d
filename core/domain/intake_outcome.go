package domain

// OutcomeStatus is the stable status tag of an ingestion outcome.
type OutcomeStatus string

const (
	StatusProcessed          OutcomeStatus = "processed"
	StatusDuplicate          OutcomeStatus = "duplicate"
	StatusPoliticianNotFound OutcomeStatus = "politician-not-found"
	StatusContentTooShort    OutcomeStatus = "message-too-short"
	StatusError              OutcomeStatus = "error"
)

// Outcome is the terminal result of ingesting one (message, recipient) pair.
// Exactly one of Processed, Duplicate, PoliticianNotFound, ContentTooShort
// or ProcessingError is returned per run.
type Outcome interface {
	Status() OutcomeStatus
	// Confidence orders outcomes when one email fans out to several recipients.
	Confidence() float64
	outcome()
}

// Processed means the message was classified and stored.
type Processed struct {
	MessageID      int64
	Classification ClassificationResult
	DuplicateRank  int
	PoliticianID   int64
	PoliticianName string
}

// Duplicate means the external id was already stored for this channel source.
type Duplicate struct {
	ExternalID string
}

// PoliticianNotFound means the recipient address matched no active politician.
type PoliticianNotFound struct {
	RecipientEmail string
}

// ContentTooShort means the trimmed content was under MinContentLength.
type ContentTooShort struct {
	Length int
}

// ProcessingError means a fatal-for-this-message failure.
type ProcessingError struct {
	Reason string
	Err    error
}

func (Processed) Status() OutcomeStatus          { return StatusProcessed }
func (Duplicate) Status() OutcomeStatus          { return StatusDuplicate }
func (PoliticianNotFound) Status() OutcomeStatus { return StatusPoliticianNotFound }
func (ContentTooShort) Status() OutcomeStatus    { return StatusContentTooShort }
func (ProcessingError) Status() OutcomeStatus    { return StatusError }

func (p Processed) Confidence() float64        { return p.Classification.Confidence }
func (Duplicate) Confidence() float64          { return 1.0 }
func (PoliticianNotFound) Confidence() float64 { return 0.0 }
func (ContentTooShort) Confidence() float64    { return 0.1 }
func (ProcessingError) Confidence() float64    { return 0.0 }

func (Processed) outcome()          {}
func (Duplicate) outcome()          {}
func (PoliticianNotFound) outcome() {}
func (ContentTooShort) outcome()    {}
func (ProcessingError) outcome()    {}

func (e ProcessingError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e ProcessingError) Unwrap() error { return e.Err }
