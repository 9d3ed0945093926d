package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"intake_server/adapter/out/embedding"
	"intake_server/adapter/out/persistence"
	"intake_server/core/service/classification"
	"intake_server/infra/database"
	"intake_server/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	classifyText string
	classifyHint string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a text against the configured campaigns",
	Long: `Embed --text and run it through the campaign classifier without storing
a message. --hint is tried first, exactly as the direct API does.

Example:
  intakectl classify --text "Please keep the night bus running" --hint night-bus`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(classifyText)
		if text == "" {
			return fmt.Errorf("--text is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sqlDB, err := database.NewSQLX(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		log := logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Output: cmd.ErrOrStderr(), Pretty: true})

		embedder := embedding.NewClient(embedding.Config{
			APIKey:  cfg.EmbeddingAPIKey,
			BaseURL: cfg.EmbeddingBaseURL,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.EmbeddingTimeout(),
		}, log)
		vector, err := embedder.Embed(ctx, truncateRunes(text, cfg.EmbeddingMaxChars))
		if err != nil {
			return err
		}

		classifier := classification.NewClassifier(
			persistence.NewCampaignAdapter(sqlDB, pool),
			classification.DefaultConfig(),
			log,
		)
		result, err := classifier.Classify(ctx, vector, classifyHint)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyText, "text", "", "Message text to classify")
	classifyCmd.Flags().StringVar(&classifyHint, "hint", "", "Optional campaign hint")
	rootCmd.AddCommand(classifyCmd)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
