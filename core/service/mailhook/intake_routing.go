package mailhook

import (
	"regexp"
	"strconv"

	"intake_server/core/domain"
)

const (
	BaseFolder = "CircularDemocracy"

	FolderDuplicates      = BaseFolder + "/System/Duplicates"
	FolderUnknown         = BaseFolder + "/System/Unknown"
	FolderTooShort        = BaseFolder + "/System/TooShort"
	FolderProcessingError = BaseFolder + "/System/ProcessingError"

	// LowConfidenceThreshold sends processed mail to the LowConfidence subfolder.
	LowConfidenceThreshold = 0.3
	maxFolderNameLength    = 50
)

// Diagnostic header names.
const (
	HeaderStatus        = "X-CircularDemocracy-Status"
	HeaderCampaign      = "X-CircularDemocracy-Campaign"
	HeaderConfidence    = "X-CircularDemocracy-Confidence"
	HeaderDuplicateRank = "X-CircularDemocracy-Duplicate-Rank"
	HeaderMessageID     = "X-CircularDemocracy-Message-ID"
	HeaderPolitician    = "X-CircularDemocracy-Politician"
	HeaderError         = "X-CircularDemocracy-Error"
)

var (
	folderUnsafeRe = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
	folderSpaceRe  = regexp.MustCompile(`\s+`)
)

// FolderName turns a campaign name into a mailbox-safe path segment.
func FolderName(campaignName string) string {
	name := folderUnsafeRe.ReplaceAllString(campaignName, "")
	name = folderSpaceRe.ReplaceAllString(name, "-")
	if len(name) > maxFolderNameLength {
		name = name[:maxFolderNameLength]
	}
	return name
}

// Folder returns the mailbox the winning outcome is filed into.
func Folder(o domain.Outcome) string {
	switch v := o.(type) {
	case domain.Processed:
		folder := BaseFolder + "/" + FolderName(v.Classification.CampaignName)
		if v.DuplicateRank > 0 {
			return folder + "/Duplicates"
		}
		if v.Classification.Confidence < LowConfidenceThreshold {
			return folder + "/LowConfidence"
		}
		return folder
	case domain.Duplicate:
		return FolderDuplicates
	case domain.PoliticianNotFound:
		return FolderUnknown
	case domain.ContentTooShort:
		return FolderTooShort
	default:
		return FolderProcessingError
	}
}

// Headers returns the diagnostic headers for the winning outcome.
func Headers(o domain.Outcome, messageID string) map[string]string {
	h := map[string]string{HeaderStatus: string(o.Status())}
	switch v := o.(type) {
	case domain.Processed:
		h[HeaderCampaign] = v.Classification.CampaignName
		h[HeaderConfidence] = FormatConfidence(v.Classification.Confidence)
		h[HeaderDuplicateRank] = strconv.Itoa(v.DuplicateRank)
		h[HeaderMessageID] = messageID
		h[HeaderPolitician] = v.PoliticianName
	case domain.ProcessingError:
		h[HeaderError] = v.Reason
	}
	return h
}

// FormatConfidence renders a confidence with the shortest exact representation.
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// Decide builds the accept decision for an outcome.
func Decide(o domain.Outcome, messageID string) domain.HookDecision {
	return domain.HookDecision{
		Action:     domain.HookAccept,
		Confidence: o.Confidence(),
		Folder:     Folder(o),
		Headers:    Headers(o, messageID),
		Outcome:    o,
	}
}
