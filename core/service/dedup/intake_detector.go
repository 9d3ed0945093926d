// Package dedup answers the two duplicate questions asked during intake:
// was this exact transport message seen before, and how many times has this
// sender already written to this politician about this campaign.
package dedup

import (
	"context"

	"intake_server/core/domain"
	"intake_server/core/port/out"
	"intake_server/pkg/logger"
)

// Detector never returns errors. Storage failures degrade to "not a duplicate"
// and rank 0 so bookkeeping cannot block acceptance.
type Detector struct {
	messages out.MessageRepository
	log      *logger.Logger
}

func NewDetector(messages out.MessageRepository, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Default()
	}
	return &Detector{messages: messages, log: log}
}

// IsTransportDuplicate reports whether externalID was already stored for channelSource.
func (d *Detector) IsTransportDuplicate(ctx context.Context, externalID, channelSource string) bool {
	exists, err := d.messages.ExistsByExternalID(ctx, externalID, channelSource)
	if err != nil {
		d.log.WithError(err).WithFields(map[string]any{
			"external_id":    externalID,
			"channel_source": channelSource,
		}).Warn("transport duplicate check failed, assuming new message")
		return false
	}
	return exists
}

// DuplicateRank counts stored messages with the same sender, politician and campaign.
func (d *Detector) DuplicateRank(ctx context.Context, sender domain.SenderIdentity, politicianID, campaignID int64) int {
	n, err := d.messages.CountBySender(ctx, sender, politicianID, campaignID)
	if err != nil {
		d.log.WithError(err).WithFields(map[string]any{
			"politician_id": politicianID,
			"campaign_id":   campaignID,
		}).Warn("duplicate rank count failed, using 0")
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
