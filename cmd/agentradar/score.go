package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"AgentRadar/internal/app"
	"AgentRadar/internal/domain"
	"AgentRadar/internal/logging"
	"AgentRadar/internal/usecase"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score a single notice read from a file or stdin",
	Long:  "Score runs cleaning, entity extraction and opportunity scoring on one notice without storing or notifying anything.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScore,
}

var (
	scoreTitle     string
	scorePublished string
	scoreSource    string
)

func init() {
	scoreCmd.Flags().StringVar(&scoreTitle, "title", "", "Notice title")
	scoreCmd.Flags().StringVar(&scorePublished, "published", "", "Publication date (YYYY-MM-DD), defaults to today")
	scoreCmd.Flags().StringVar(&scoreSource, "source", "manual", "Source label")

	rootCmd.AddCommand(scoreCmd)
}

type scoreReport struct {
	Score         float64                  `json:"score"`
	Priority      domain.Priority          `json:"priority"`
	Quality       float64                  `json:"qualityScore"`
	NERConfidence float64                  `json:"nerConfidence"`
	Breakdown     domain.ScoreBreakdown    `json:"breakdown"`
	Entities      domain.ExtractedEntities `json:"entities"`
	PropertyType  string                   `json:"propertyType"`
	Urgent        bool                     `json:"urgent"`
}

func runScore(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open notice: %w", err)
		}
		defer f.Close()
		in = f
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read notice: %w", err)
	}

	now := time.Now().UTC()
	published := now
	if scorePublished != "" {
		if published, err = time.Parse(time.DateOnly, scorePublished); err != nil {
			return fmt.Errorf("invalid --published: %w", err)
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Logger:  logging.Discard(),
		Options: app.PipelineOptions(loadConfig()),
	})
	scored, err := pipeline.Assess(domain.RawRecord{
		ID:          "manual",
		Title:       scoreTitle,
		Content:     strings.TrimSpace(string(content)),
		Source:      scoreSource,
		PublishedAt: published,
	}, now)
	if err != nil {
		return fmt.Errorf("notice rejected: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(scoreReport{
		Score:         scored.Score,
		Priority:      scored.Priority(),
		Quality:       scored.Record.QualityScore,
		NERConfidence: scored.NERConfidence,
		Breakdown:     scored.Breakdown,
		Entities:      scored.Entities,
		PropertyType:  scored.Record.PropertyType,
		Urgent:        scored.Record.Urgent,
	})
}
