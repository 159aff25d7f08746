package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintkit/bioblueprint/internal/model"
)

func TestFormatExifInfoAllFields(t *testing.T) {
	exif := &model.ExifData{
		CaptureTime: "2024-06-15T10:30:00Z",
		GPS:         &model.GPSCoordinate{Latitude: 33.0198, Longitude: -96.6989},
		Camera:      "Apple iPhone 15 Pro",
	}

	out := formatExifInfo(exif)

	assert.Equal(t, " | EXIF: Taken: 2024-06-15T10:30:00Z, GPS: 33.019800, -96.698900, Camera: Apple iPhone 15 Pro", out)
}

func TestFormatExifInfoPartial(t *testing.T) {
	out := formatExifInfo(&model.ExifData{Camera: "Canon EOS R5"})
	assert.Equal(t, " | EXIF: Camera: Canon EOS R5", out)
}

func TestFormatExifInfoNil(t *testing.T) {
	assert.Equal(t, "", formatExifInfo(nil))
	assert.Equal(t, "", formatExifInfo(&model.ExifData{Orientation: 3}))
}

func TestBuildImageContentLayout(t *testing.T) {
	images := []model.EvidenceImage{
		{Filename: "a.jpg", Base64: "QUFB"},
		{Filename: "b.jpg", Base64: "QkJC", Exif: &model.ExifData{Camera: "Pixel 8"}},
	}

	content := buildImageContent("Please scan the following 2 images:", images)

	require.Len(t, content, 5)
	assert.Equal(t, "Please scan the following 2 images:", content[0].Text)
	assert.Equal(t, "\n--- Image 0 (a.jpg) ---", content[1].Text)
	assert.Equal(t, "image", content[2].Type)
	assert.Equal(t, "QUFB", content[2].Data)
	assert.Equal(t, "image/jpeg", content[2].MediaType)
	assert.Equal(t, "\n--- Image 1 (b.jpg) | EXIF: Camera: Pixel 8 ---", content[3].Text)
	assert.Equal(t, "QkJC", content[4].Data)
}

func TestBuildExifSummaryEmpty(t *testing.T) {
	images := []model.EvidenceImage{
		{Filename: "a.jpg"},
		{Filename: "b.jpg", Exif: &model.ExifData{Camera: "Sony A7"}},
	}

	assert.Equal(t, "", buildExifSummary(images))
}

func TestBuildExifSummaryGPSAndTimes(t *testing.T) {
	images := []model.EvidenceImage{
		{Exif: &model.ExifData{CaptureTime: "2024-06-03T08:00:00Z"}},
		{Exif: &model.ExifData{GPS: &model.GPSCoordinate{Latitude: 33.0198, Longitude: -96.6989}}},
		{Exif: &model.ExifData{CaptureTime: "2024-06-01T20:00:00Z"}},
	}

	out := buildExifSummary(images)

	assert.True(t, strings.HasPrefix(out, "\n\n## EXIF Metadata (Use for inference):\n"))
	assert.Contains(t, out, "GPS Locations:\n- Image 1: 33.019800, -96.698900\n")

	// Capture times listed chronologically, not by index.
	timesIdx := strings.Index(out, "Capture Times:")
	require.Positive(t, timesIdx)
	first := strings.Index(out, "- Image 2: 2024-06-01T20:00:00Z")
	second := strings.Index(out, "- Image 0: 2024-06-03T08:00:00Z")
	require.Positive(t, first)
	require.Positive(t, second)
	assert.Less(t, first, second)

	assert.Contains(t, out, "Time Range: 2024-06-01 to 2024-06-03\n")
}

func TestBuildExifSummarySingleDayRange(t *testing.T) {
	images := []model.EvidenceImage{
		{Exif: &model.ExifData{CaptureTime: "2024-06-01T09:00:00Z"}},
		{Exif: &model.ExifData{CaptureTime: "2024-06-01T21:00:00Z"}},
	}

	out := buildExifSummary(images)

	assert.Contains(t, out, "Time Range: 2024-06-01 to 2024-06-01\n")
	assert.NotContains(t, out, "GPS Locations")
}

func TestDateOnly(t *testing.T) {
	assert.Equal(t, "2024-06-01", dateOnly("2024-06-01T10:00:00Z"))
	assert.Equal(t, "2024-06-01", dateOnly("2024-06-01"))
}
