package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

// ScanImages runs the quick scan: OCR extraction, tagging, priority ranking
// and cross-reference detection over the whole batch. The request carries the
// aggregated EXIF summary after the images so batch-level GPS and time-range
// signals reach the model. Cross-reference confidences are normalized into
// occurrence-count bands before the result is returned.
func ScanImages(ctx context.Context, images []model.EvidenceImage, aiClient anthropic.Client, aiCfg config.AnthropicConfig) (*model.ScanResult, *anthropic.TokenUsage, error) {
	zap.L().Info("scanning images",
		zap.Int("images", len(images)),
	)

	intro := fmt.Sprintf("Please scan the following %d images:", len(images))
	content := buildImageContent(intro, images)

	if summary := buildExifSummary(images); summary != "" {
		content = append(content, anthropic.TextPart(summary))
	}

	resp, err := aiClient.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     aiCfg.Model,
		MaxTokens: aiCfg.ScanMaxTokens,
		System:    scanPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: content},
		},
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: scan request")
	}

	var result model.ScanResult
	if err := decodeResponse("scan", resp.Text(), &result); err != nil {
		return nil, &resp.Usage, err
	}

	NormalizeCrossReferences(&result, images)

	zap.L().Info("scan complete",
		zap.Int("images", result.Summary.TotalImages),
		zap.Int("cross_references", len(result.Summary.CrossReferences)),
		zap.Int("high_priority", len(result.Summary.HighPriorityImages)),
	)
	for _, ref := range result.Summary.CrossReferences {
		zap.L().Debug("cross-reference",
			zap.String("topic", ref.Topic),
			zap.Int("images", len(ref.Images)),
			zap.Float64("confidence", ref.Confidence),
		)
	}

	return &result, &resp.Usage, nil
}
