package classification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/out"
	"intake_server/pkg/logger"
	"intake_server/pkg/metrics"
)

// Config holds the cascade thresholds.
type Config struct {
	HintConfidence     float64
	SimilarityTopK     int
	SimilarityFloor    float64
	PromotionThreshold float64
	// DegradedSimilarity is assigned to unranked candidates when similarity search fails.
	DegradedSimilarity float64
	FallbackConfidence float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		HintConfidence:     0.95,
		SimilarityTopK:     3,
		SimilarityFloor:    0.1,
		PromotionThreshold: 0.7,
		DegradedSimilarity: 0.1,
		FallbackConfidence: 0.1,
	}
}

// Classifier runs the hint, similarity and fallback stages in order and stops
// at the first match. Only the fallback stage may fail the call.
type Classifier struct {
	campaigns out.CampaignRepository
	config    Config
	stages    []Stage
	log       *logger.Logger
}

func NewClassifier(campaigns out.CampaignRepository, config Config, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Default()
	}
	c := &Classifier{campaigns: campaigns, config: config, log: log}
	c.stages = []Stage{
		{Name: "hint", Run: c.hintStage, Policy: SoftFail},
		{Name: "similarity", Run: c.similarityStage, Policy: SoftFail},
		{Name: "fallback", Run: c.fallbackStage, Policy: Fatal},
	}
	return c
}

// Stages returns the cascade policy table.
func (c *Classifier) Stages() []Stage {
	return c.stages
}

// Classify assigns a campaign to the embedded message. It returns an error
// wrapping domain.ErrClassificationUnavailable only when the fallback stage fails.
func (c *Classifier) Classify(ctx context.Context, embedding []float32, hint string) (*domain.ClassificationResult, error) {
	start := time.Now()
	defer func() { metrics.RecordLatency("classification", time.Since(start)) }()

	in := StageInput{Embedding: embedding, Hint: strings.TrimSpace(hint)}
	return runCascade(ctx, c.stages, in, c.log)
}

func runCascade(ctx context.Context, stages []Stage, in StageInput, log *logger.Logger) (*domain.ClassificationResult, error) {
	for _, stage := range stages {
		res := stage.Run(ctx, in)
		switch res.Kind {
		case Matched:
			log.WithFields(map[string]any{
				"stage":       stage.Name,
				"campaign_id": res.Result.CampaignID,
				"confidence":  res.Result.Confidence,
			}).Debug("campaign classified")
			return res.Result, nil
		case Unavailable:
			if stage.Policy == Fatal {
				return nil, fmt.Errorf("%s stage: %w: %v", stage.Name, domain.ErrClassificationUnavailable, res.Err)
			}
			log.WithError(res.Err).WithField("stage", stage.Name).Warn("classification stage unavailable, continuing")
		}
	}
	return nil, fmt.Errorf("%w: no stage matched", domain.ErrClassificationUnavailable)
}

func (c *Classifier) hintStage(ctx context.Context, in StageInput) StageResult {
	if in.Hint == "" {
		return notMatched()
	}
	campaign, err := c.campaigns.FindByHint(ctx, in.Hint)
	if err != nil {
		return unavailable(fmt.Errorf("failed to find campaign by hint: %w", err))
	}
	if campaign == nil {
		return notMatched()
	}
	return matched(campaign, c.config.HintConfidence)
}

func (c *Classifier) similarityStage(ctx context.Context, in StageInput) StageResult {
	if len(in.Embedding) == 0 {
		return notMatched()
	}

	candidates, err := c.campaigns.SearchSimilar(ctx, in.Embedding, c.config.SimilarityTopK, c.config.SimilarityFloor)
	if err != nil {
		c.log.WithError(err).Warn("similarity search failed, using unranked campaigns")
		candidates, err = c.degradedCandidates(ctx)
		if err != nil {
			return unavailable(err)
		}
	}
	if len(candidates) == 0 {
		return notMatched()
	}

	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Similarity > best.Similarity {
			best = cand
		}
	}
	if best.Similarity > c.config.PromotionThreshold {
		return matched(&best.Campaign, best.Similarity)
	}
	return notMatched()
}

// degradedCandidates lists any classifiable campaigns with a reference vector at a
// nominal similarity. With default thresholds they never pass promotion.
func (c *Classifier) degradedCandidates(ctx context.Context) ([]domain.CampaignCandidate, error) {
	campaigns, err := c.campaigns.ListWithReferenceVector(ctx, c.config.SimilarityTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns with reference vectors: %w", err)
	}
	out := make([]domain.CampaignCandidate, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, domain.CampaignCandidate{Campaign: *campaign, Similarity: c.config.DegradedSimilarity})
	}
	return out, nil
}

func (c *Classifier) fallbackStage(ctx context.Context, _ StageInput) StageResult {
	description := domain.UncategorizedDescription
	campaign, err := c.campaigns.GetOrCreate(ctx, &domain.NewCampaign{
		Name:        domain.UncategorizedName,
		Slug:        domain.UncategorizedSlug,
		Description: &description,
		Status:      domain.CampaignActive,
		CreatedBy:   domain.SystemCreator,
	})
	if err != nil {
		return unavailable(fmt.Errorf("failed to get or create uncategorized campaign: %w", err))
	}
	if campaign == nil {
		return unavailable(fmt.Errorf("uncategorized campaign missing after create"))
	}
	return matched(campaign, c.config.FallbackConfidence)
}
