package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

// formatExifInfo renders an inline EXIF annotation for an image header line.
// Returns "" when no metadata is present.
func formatExifInfo(exif *model.ExifData) string {
	if exif == nil {
		return ""
	}

	var parts []string
	if exif.CaptureTime != "" {
		parts = append(parts, fmt.Sprintf("Taken: %s", exif.CaptureTime))
	}
	if exif.GPS != nil {
		parts = append(parts, fmt.Sprintf("GPS: %.6f, %.6f", exif.GPS.Latitude, exif.GPS.Longitude))
	}
	if exif.Camera != "" {
		parts = append(parts, fmt.Sprintf("Camera: %s", exif.Camera))
	}

	if len(parts) == 0 {
		return ""
	}
	return " | EXIF: " + strings.Join(parts, ", ")
}

// buildImageContent interleaves a labeled text header and the image block for
// each evidence image. The intro line leads so the model knows the batch size
// before the first image arrives.
func buildImageContent(intro string, images []model.EvidenceImage) []anthropic.ContentPart {
	content := make([]anthropic.ContentPart, 0, 1+2*len(images))
	content = append(content, anthropic.TextPart(intro))

	for i, img := range images {
		header := fmt.Sprintf("\n--- Image %d (%s)%s ---", i, img.Filename, formatExifInfo(img.Exif))
		content = append(content, anthropic.TextPart(header))
		content = append(content, anthropic.ImagePart("image/jpeg", img.Base64))
	}

	return content
}

// buildExifSummary aggregates GPS fixes and capture times across the batch
// into a markdown block the model can reason over. Capture times are listed
// chronologically and bracketed by a date range. Returns "" when no image
// carries either signal.
func buildExifSummary(images []model.EvidenceImage) string {
	var gpsIndices, timeIndices []int
	for i, img := range images {
		if img.Exif == nil {
			continue
		}
		if img.Exif.GPS != nil {
			gpsIndices = append(gpsIndices, i)
		}
		if img.Exif.CaptureTime != "" {
			timeIndices = append(timeIndices, i)
		}
	}

	if len(gpsIndices) == 0 && len(timeIndices) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n## EXIF Metadata (Use for inference):\n")

	if len(gpsIndices) > 0 {
		b.WriteString("\nGPS Locations:\n")
		for _, i := range gpsIndices {
			gps := images[i].Exif.GPS
			fmt.Fprintf(&b, "- Image %d: %.6f, %.6f\n", i, gps.Latitude, gps.Longitude)
		}
	}

	if len(timeIndices) > 0 {
		b.WriteString("\nCapture Times:\n")
		sorted := append([]int(nil), timeIndices...)
		sort.SliceStable(sorted, func(a, c int) bool {
			ta, _ := images[sorted[a]].Exif.CaptureTimeParsed()
			tc, _ := images[sorted[c]].Exif.CaptureTimeParsed()
			return ta.Before(tc)
		})

		for _, i := range sorted {
			fmt.Fprintf(&b, "- Image %d: %s\n", i, images[i].Exif.CaptureTime)
		}

		earliest := dateOnly(images[sorted[0]].Exif.CaptureTime)
		latest := dateOnly(images[sorted[len(sorted)-1]].Exif.CaptureTime)
		fmt.Fprintf(&b, "\nTime Range: %s to %s\n", earliest, latest)
	}

	return b.String()
}

// dateOnly trims an ISO-8601 timestamp to its calendar date.
func dateOnly(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		return ts[:i]
	}
	return ts
}
