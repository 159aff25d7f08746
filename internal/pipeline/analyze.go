package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

// DeepAnalyze produces the confidence-annotated profile tree. The request
// re-sends every image together with an instruction block built from the scan
// results: totals, high-priority indices, focus topics and the per-topic
// evidence, plus the aggregated EXIF summary.
func DeepAnalyze(ctx context.Context, images []model.EvidenceImage, scan *model.ScanResult, focusTopics []string, aiClient anthropic.Client, aiCfg config.AnthropicConfig) (model.AnalysisTree, *anthropic.TokenUsage, error) {
	zap.L().Info("deep analyzing",
		zap.Strings("focus_topics", focusTopics),
	)

	instruction := buildAnalysisInstruction(scan, focusTopics, images)

	content := make([]anthropic.ContentPart, 0, 1+2*len(images))
	content = append(content, anthropic.TextPart(instruction))
	// Skip buildImageContent's intro line; the instruction block leads here.
	content = append(content, buildImageContent("", images)[1:]...)

	resp, err := aiClient.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     aiCfg.Model,
		MaxTokens: aiCfg.AnalyzeMaxTokens,
		System:    analyzePrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: content},
		},
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: deep analysis request")
	}

	var tree model.AnalysisTree
	if err := decodeResponse("analyze", resp.Text(), &tree); err != nil {
		return nil, &resp.Usage, err
	}

	zap.L().Info("deep analysis complete",
		zap.Int("categories", len(tree)),
	)

	return tree, &resp.Usage, nil
}

func buildAnalysisInstruction(scan *model.ScanResult, focusTopics []string, images []model.EvidenceImage) string {
	var b strings.Builder

	b.WriteString("\nBased on the following scan results, perform deep analysis:\n\n")
	b.WriteString("Scan Summary:\n")
	fmt.Fprintf(&b, "- Total images: %d\n", scan.Summary.TotalImages)
	fmt.Fprintf(&b, "- High priority image indices: %s\n", joinInts(scan.Summary.HighPriorityImages))
	fmt.Fprintf(&b, "- Focus topics: %s\n", strings.Join(focusTopics, ", "))

	b.WriteString("\nTopic details:\n")
	for _, ref := range scan.Summary.CrossReferences {
		fmt.Fprintf(&b, "- %s: images [%s], confidence %g\n", ref.Topic, joinInts(ref.Images), ref.Confidence)
	}

	b.WriteString(buildExifSummary(images))
	b.WriteString("\nPlease generate the complete profile tree JSON.\n")

	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
