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

// DetectContext classifies each image's source, domain, interaction mode,
// layout, subject relation, visible text and privacy level in one request.
// Callers can skip this phase entirely; downstream phases tolerate a nil
// context result.
func DetectContext(ctx context.Context, images []model.EvidenceImage, aiClient anthropic.Client, aiCfg config.AnthropicConfig) (*model.ContextResult, *anthropic.TokenUsage, error) {
	zap.L().Info("detecting context",
		zap.Int("images", len(images)),
	)

	intro := fmt.Sprintf("Analyze the context of the following %d images:", len(images))
	content := buildImageContent(intro, images)

	resp, err := aiClient.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     aiCfg.Model,
		MaxTokens: aiCfg.ContextMaxTokens,
		System:    contextPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: content},
		},
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: context detection request")
	}

	var result model.ContextResult
	if err := decodeResponse("context", resp.Text(), &result); err != nil {
		return nil, &resp.Usage, err
	}

	zap.L().Info("context detected",
		zap.String("source", string(result.Summary.DominantSourceType)),
		zap.String("domain", string(result.Summary.DominantDomain)),
		zap.String("format", string(result.Summary.DominantFormat)),
		zap.Strings("apps", result.Summary.DetectedApps),
		zap.Strings("usernames", result.Summary.DetectedUsernames),
		zap.String("privacy", string(result.Summary.OverallPrivacyLevel)),
	)

	return &result, &resp.Usage, nil
}
