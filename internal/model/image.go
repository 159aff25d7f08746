package model

import "time"

// GPSCoordinate is a decimal-degree latitude/longitude pair.
type GPSCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ExifData holds the capture metadata extracted from an image before
// compression. All fields are best-effort; absence is not an error.
type ExifData struct {
	CaptureTime string         `json:"capture_time,omitempty"` // ISO-8601
	GPS         *GPSCoordinate `json:"gps,omitempty"`
	Camera      string         `json:"camera,omitempty"`
	Orientation int            `json:"orientation,omitempty"`
}

// CaptureTimeParsed parses the ISO-8601 capture time. Returns false when the
// timestamp is absent or malformed.
func (e *ExifData) CaptureTimeParsed() (time.Time, bool) {
	if e == nil || e.CaptureTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, e.CaptureTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HasGPS reports whether GPS coordinates were extracted.
func (e *ExifData) HasGPS() bool {
	return e != nil && e.GPS != nil
}

// EvidenceImage is one normalized input unit: a JPEG payload within the size
// budget plus whatever capture metadata survived extraction. Immutable once
// produced by preprocessing.
type EvidenceImage struct {
	Filename       string    `json:"filename"`
	Base64         string    `json:"base64"`
	SizeKB         float64   `json:"size_kb"`
	OriginalSizeKB float64   `json:"original_size_kb"`
	Exif           *ExifData `json:"exif,omitempty"`
}
