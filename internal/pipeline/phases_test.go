package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

func testAICfg() config.AnthropicConfig {
	return config.AnthropicConfig{
		Model:               "claude-sonnet-4-5-20250929",
		ContextMaxTokens:    8000,
		ScanMaxTokens:       16000,
		AnalyzeMaxTokens:    16000,
		SynthesizeMaxTokens: 16000,
	}
}

func testImages() []model.EvidenceImage {
	return []model.EvidenceImage{
		{Filename: "one.jpg", Base64: "QUFB"},
		{Filename: "two.jpg", Base64: "QkJC", Exif: &model.ExifData{
			CaptureTime: "2024-06-01T10:00:00Z",
			GPS:         &model.GPSCoordinate{Latitude: 33.0198, Longitude: -96.6989},
		}},
	}
}

const contextResponseJSON = `{
  "images": [
    {
      "imageIndex": 0,
      "sourceType": {"value": "app_screenshot", "confidence": 0.95},
      "contentDomain": {"value": "social_media", "confidence": 0.9},
      "interactionMode": {"value": "content_browsing", "confidence": 0.85},
      "contentFormat": {"value": "grid_overview", "confidence": 0.95},
      "subjectRelation": {"value": "own_account", "confidence": 0.8},
      "visibleText": {"usernames": ["@someone"], "timestamps": [], "keyLabels": [], "otherText": []},
      "privacySensitivity": {"level": "medium", "flags": ["contains_face"]}
    }
  ],
  "summary": {
    "dominantSourceType": "app_screenshot",
    "dominantDomain": "social_media",
    "dominantFormat": "grid_overview",
    "detectedUsernames": ["@someone"],
    "detectedApps": ["Instagram"],
    "overallPrivacyLevel": "medium"
  }
}`

func TestDetectContextParsesResult(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == contextPrompt && req.MaxTokens == 8000
	})).Return(textResponse(contextResponseJSON), nil)

	result, usage, err := DetectContext(context.Background(), testImages(), client, testAICfg())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.SourceTypeAppScreenshot, result.Summary.DominantSourceType)
	assert.Equal(t, model.DomainSocialMedia, result.Images[0].ContentDomain.Value)
	assert.Equal(t, []string{"@someone"}, result.Summary.DetectedUsernames)
	require.NotNil(t, usage)
	assert.Equal(t, int64(1000), usage.InputTokens)
	client.AssertExpectations(t)
}

func TestDetectContextRequestCarriesImages(t *testing.T) {
	var captured anthropic.MessageRequest
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(textResponse(contextResponseJSON), nil)

	_, _, err := DetectContext(context.Background(), testImages(), client, testAICfg())
	require.NoError(t, err)

	require.Len(t, captured.Messages, 1)
	content := captured.Messages[0].Content
	// Intro + (header, image) per image.
	require.Len(t, content, 5)
	assert.Equal(t, "Analyze the context of the following 2 images:", content[0].Text)
	assert.Contains(t, content[3].Text, "GPS: 33.019800, -96.698900")
	assert.Equal(t, "QkJC", content[4].Data)
}

func TestDetectContextEmptyResponse(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(""), nil)

	_, usage, err := DetectContext(context.Background(), testImages(), client, testAICfg())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
	assert.NotNil(t, usage)
}

func TestDetectContextTransportError(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("network down"))

	_, _, err := DetectContext(context.Background(), testImages(), client, testAICfg())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context detection request")
}

const scanResponseJSON = `{
  "scanResults": [
    {
      "imageIndex": 0,
      "tags": [{"tag": "climbing_gym", "confidence": 0.9, "category": "hobby"}],
      "textDetected": [{"text": "Movement Plano", "type": "business_name", "confidence": 0.95}],
      "peopleCount": 1,
      "hasLocation": true,
      "locationTag": "Plano, TX",
      "priority": "high"
    }
  ],
  "summary": {
    "totalImages": 2,
    "categoryDistribution": {"hobby": 1, "location": 1},
    "highPriorityImages": [0],
    "crossReferences": [
      {"topic": "climbing_hobby", "images": [0, 1], "confidence": 0.99}
    ]
  }
}`

func TestScanImagesParsesAndNormalizes(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == scanPrompt && req.MaxTokens == 16000
	})).Return(textResponse(scanResponseJSON), nil)

	result, _, err := ScanImages(context.Background(), testImages(), client, testAICfg())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.TotalImages)
	assert.Equal(t, model.CategoryHobby, result.ScanResults[0].Tags[0].Category)

	// 2 occurrences clamp to 0.80, then OCR (+0.05 via scan text) and GPS
	// (+0.05 via image 1 EXIF) boosts.
	assert.InDelta(t, 0.90, result.Summary.CrossReferences[0].Confidence, 1e-9)
}

func TestScanImagesAppendsExifSummary(t *testing.T) {
	var captured anthropic.MessageRequest
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(textResponse(scanResponseJSON), nil)

	_, _, err := ScanImages(context.Background(), testImages(), client, testAICfg())
	require.NoError(t, err)

	content := captured.Messages[0].Content
	last := content[len(content)-1]
	assert.Contains(t, last.Text, "## EXIF Metadata (Use for inference):")
	assert.Contains(t, last.Text, "Time Range: 2024-06-01 to 2024-06-01")
}

const analyzeResponseJSON = `{
  "simulation": {
    "hobbies": [
      {"value": "rock_climbing", "confidence": 0.9, "evidence": ["img_0: climbing wall"]}
    ]
  },
  "backstory": {
    "origin": {"value": "texas", "confidence": 0.85, "evidence": ["img_1: gps"]}
  }
}`

func TestDeepAnalyzeParsesTree(t *testing.T) {
	scan := &model.ScanResult{
		Summary: model.ScanSummary{
			TotalImages:        2,
			HighPriorityImages: []int{0},
			CrossReferences: []model.CrossReference{
				{Topic: "climbing_hobby", Images: []int{0, 1}, Confidence: 0.8},
			},
		},
	}

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == analyzePrompt
	})).Return(textResponse(analyzeResponseJSON), nil)

	tree, _, err := DeepAnalyze(context.Background(), testImages(), scan, []string{"climbing_hobby"}, client, testAICfg())

	require.NoError(t, err)
	assert.Contains(t, tree, "simulation")
	assert.Contains(t, tree, "backstory")
}

func TestDeepAnalyzeInstructionBlock(t *testing.T) {
	scan := &model.ScanResult{
		Summary: model.ScanSummary{
			TotalImages:        2,
			HighPriorityImages: []int{0, 1},
			CrossReferences: []model.CrossReference{
				{Topic: "climbing_hobby", Images: []int{0, 1}, Confidence: 0.8},
			},
		},
	}

	var captured anthropic.MessageRequest
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(textResponse(analyzeResponseJSON), nil)

	_, _, err := DeepAnalyze(context.Background(), testImages(), scan, []string{"climbing_hobby"}, client, testAICfg())
	require.NoError(t, err)

	instruction := captured.Messages[0].Content[0].Text
	assert.Contains(t, instruction, "Total images: 2")
	assert.Contains(t, instruction, "High priority image indices: 0, 1")
	assert.Contains(t, instruction, "Focus topics: climbing_hobby")
	assert.Contains(t, instruction, "- climbing_hobby: images [0, 1], confidence 0.8")
	assert.Contains(t, instruction, "## EXIF Metadata (Use for inference):")

	// Images follow the instruction; no duplicate intro line.
	require.Len(t, captured.Messages[0].Content, 5)
	assert.Equal(t, "image", captured.Messages[0].Content[2].Type)
}

const synthesizeResponseJSON = `{
  "id": "model-made-this-up",
  "character_name": "plano_climbing_mom",
  "profile": {
    "identity_card": {
      "gender": "Female",
      "location": "Plano, TX",
      "interests": ["Climbing"]
    }
  },
  "blueprint": {
    "simulation": {"daily_routine": {"wake_time": "07:00"}}
  }
}`

func TestSynthesizeReplacesID(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == synthesizePrompt
	})).Return(textResponse(synthesizeResponseJSON), nil)

	tree := model.AnalysisTree{"simulation": map[string]any{"hobby": cv("climbing", 0.9)}}
	bp, _, err := Synthesize(context.Background(), tree, model.KnownInfo{}, nil, client, testAICfg())

	require.NoError(t, err)
	assert.NotEqual(t, "model-made-this-up", bp.ID())
	assert.NotEmpty(t, bp.ID())
	assert.Equal(t, "plano_climbing_mom", bp.CharacterName())
}

func TestSynthesizeSideChannels(t *testing.T) {
	var captured anthropic.MessageRequest
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(textResponse(synthesizeResponseJSON), nil)

	tree := model.AnalysisTree{"backstory": map[string]any{"origin": cv("texas", 0.85)}}
	known := model.KnownInfo{Gender: "female", Occupation: "engineer"}
	summary := &model.ContextSummary{DominantSourceType: model.SourceTypeAppScreenshot}

	_, _, err := Synthesize(context.Background(), tree, known, summary, client, testAICfg())
	require.NoError(t, err)

	prompt := captured.Messages[0].Content[0].Text
	assert.Contains(t, prompt, "Convert the following inference results")
	assert.Contains(t, prompt, `"_knownInfo"`)
	assert.Contains(t, prompt, `"occupation": "engineer"`)
	assert.Contains(t, prompt, `"_context"`)
	assert.Contains(t, prompt, `"dominantSourceType": "app_screenshot"`)
}

func TestSynthesizeOmitsEmptySideChannels(t *testing.T) {
	var captured anthropic.MessageRequest
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(textResponse(synthesizeResponseJSON), nil)

	tree := model.AnalysisTree{"goal": map[string]any{"dream": cv("own a gym", 0.9)}}
	_, _, err := Synthesize(context.Background(), tree, model.KnownInfo{}, nil, client, testAICfg())
	require.NoError(t, err)

	prompt := captured.Messages[0].Content[0].Text
	assert.NotContains(t, prompt, "_knownInfo")
	assert.NotContains(t, prompt, "_context")
}
