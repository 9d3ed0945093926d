package mailhook

import (
	"strings"
	"testing"

	"intake_server/core/domain"
)

func processed(name string, confidence float64, rank int) domain.Processed {
	return domain.Processed{
		MessageID:      42,
		Classification: domain.ClassificationResult{CampaignID: 7, CampaignName: name, Confidence: confidence},
		DuplicateRank:  rank,
		PoliticianName: "Maria Rossi",
	}
}

func TestFolderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Climate Action", "Climate-Action"},
		{"Save the Bees! (2024)", "Save-the-Bees-2024"},
		{"  spaced   out  ", "-spaced-out-"},
		{"snake_case-and-dash", "snake_case-and-dash"},
		{"Ünïcode café", "ncode-caf"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := FolderName(tt.in); got != tt.want {
			t.Errorf("FolderName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFolder(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.Outcome
		want    string
	}{
		{"processed", processed("Climate Action", 0.95, 0), "CircularDemocracy/Climate-Action"},
		{"repeat sender", processed("Climate Action", 0.95, 2), "CircularDemocracy/Climate-Action/Duplicates"},
		{"low confidence", processed("Uncategorized", 0.1, 0), "CircularDemocracy/Uncategorized/LowConfidence"},
		{"rank beats low confidence", processed("Uncategorized", 0.1, 1), "CircularDemocracy/Uncategorized/Duplicates"},
		{"exactly 0.3 is not low", processed("Transit", 0.3, 0), "CircularDemocracy/Transit"},
		{"duplicate", domain.Duplicate{}, FolderDuplicates},
		{"not found", domain.PoliticianNotFound{}, FolderUnknown},
		{"too short", domain.ContentTooShort{Length: 5}, "CircularDemocracy/System/TooShort"},
		{"error", domain.ProcessingError{Reason: "boom"}, FolderProcessingError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Folder(tt.outcome); got != tt.want {
				t.Errorf("Folder = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(processed("Climate Action", 0.72, 1), "<abc@mail.example>")
	want := map[string]string{
		HeaderStatus:        "processed",
		HeaderCampaign:      "Climate Action",
		HeaderConfidence:    "0.72",
		HeaderDuplicateRank: "1",
		HeaderMessageID:     "<abc@mail.example>",
		HeaderPolitician:    "Maria Rossi",
	}
	if len(h) != len(want) {
		t.Fatalf("headers = %v", h)
	}
	for k, v := range want {
		if h[k] != v {
			t.Errorf("%s = %q, want %q", k, h[k], v)
		}
	}

	errHeaders := Headers(domain.ProcessingError{Reason: "Failed to store message"}, "id")
	if errHeaders[HeaderStatus] != "error" || errHeaders[HeaderError] != "Failed to store message" {
		t.Errorf("error headers = %v", errHeaders)
	}
	if _, ok := errHeaders[HeaderCampaign]; ok {
		t.Error("campaign header must be absent on error")
	}

	if got := Headers(domain.PoliticianNotFound{}, "id"); len(got) != 1 || got[HeaderStatus] != "politician-not-found" {
		t.Errorf("not found headers = %v", got)
	}
}

func TestFormatConfidence(t *testing.T) {
	tests := map[float64]string{0.95: "0.95", 1: "1", 0.1: "0.1", 0: "0", 0.8123: "0.8123"}
	for in, want := range tests {
		if got := FormatConfidence(in); got != want {
			t.Errorf("FormatConfidence(%v) = %q, want %q", in, got, want)
		}
	}
}
