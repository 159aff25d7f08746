// Package dataset manages on-disk image datasets and their meta.json
// sidecar, which carries user-declared known info, a cached context
// detection result, and free-form notes.
package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/blueprintkit/bioblueprint/internal/model"
)

// MetaFilename is the sidecar file name inside each dataset directory.
const MetaFilename = "meta.json"

// ErrNotFound indicates a dataset directory that does not exist.
var ErrNotFound = eris.New("dataset: not found")

// Meta is the dataset sidecar: everything known about a dataset beyond the
// image files themselves.
type Meta struct {
	Known   model.KnownInfo      `json:"known,omitempty"`
	Context *model.ContextResult `json:"context,omitempty"`
	Notes   string               `json:"notes,omitempty"`
}

// HasContext reports whether a non-empty cached context result is present.
func (m *Meta) HasContext() bool {
	return m.Context != nil && len(m.Context.Images) > 0
}

// ReadMeta loads the sidecar from a dataset directory. A missing sidecar is
// not an error; it reads as empty.
func ReadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return &Meta{}, nil
		}
		return nil, eris.Wrapf(err, "dataset: read meta in %s", dir)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse meta in %s", dir)
	}
	return &meta, nil
}

// WriteMeta saves the sidecar into a dataset directory.
func WriteMeta(dir string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dataset: encode meta")
	}
	path := filepath.Join(dir, MetaFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "dataset: write meta %s", path)
	}
	return nil
}

// UpdateContext stores a fresh context detection result in the sidecar,
// preserving the other fields.
func UpdateContext(dir string, contextResult *model.ContextResult) (*Meta, error) {
	meta, err := ReadMeta(dir)
	if err != nil {
		return nil, err
	}
	meta.Context = contextResult
	if err := WriteMeta(dir, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// UpdateKnown merges known-info fields into the sidecar. Only populated
// fields of known overwrite existing values.
func UpdateKnown(dir string, known model.KnownInfo) (*Meta, error) {
	meta, err := ReadMeta(dir)
	if err != nil {
		return nil, err
	}
	mergeKnown(&meta.Known, known)
	if err := WriteMeta(dir, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func mergeKnown(dst *model.KnownInfo, src model.KnownInfo) {
	if src.Gender != "" {
		dst.Gender = src.Gender
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.AgeRange != "" {
		dst.AgeRange = src.AgeRange
	}
	if src.Nationality != "" {
		dst.Nationality = src.Nationality
	}
	if src.Location != "" {
		dst.Location = src.Location
	}
	if src.Occupation != "" {
		dst.Occupation = src.Occupation
	}
	for k, v := range src.Extra {
		if dst.Extra == nil {
			dst.Extra = make(map[string]string)
		}
		dst.Extra[k] = v
	}
}

// ContextSummaryLine renders a one-line description of the cached context
// for dataset listings.
func (m *Meta) ContextSummaryLine() string {
	if m.Context == nil {
		return "No context detected"
	}

	s := m.Context.Summary
	var parts []string
	if s.DominantSourceType != model.SourceTypeUnknown && s.DominantSourceType != "" {
		parts = append(parts, "Source: "+string(s.DominantSourceType))
	}
	if s.DominantDomain != model.DomainUnknown && s.DominantDomain != "" {
		parts = append(parts, "Domain: "+string(s.DominantDomain))
	}
	if s.DominantFormat != model.FormatUnknown && s.DominantFormat != "" {
		parts = append(parts, "Format: "+string(s.DominantFormat))
	}
	if len(s.DetectedApps) > 0 {
		parts = append(parts, "Apps: "+strings.Join(s.DetectedApps, ", "))
	}
	if len(s.DetectedUsernames) > 0 {
		parts = append(parts, "Users: "+strings.Join(s.DetectedUsernames, ", "))
	}
	return strings.Join(parts, " | ")
}

// Catalog lists and resolves datasets under a root directory. Each
// subdirectory is one dataset.
type Catalog struct {
	Root string
}

// Entry describes one dataset in a listing.
type Entry struct {
	Name       string `json:"name"`
	ImageCount int    `json:"imageCount"`
	HasMeta    bool   `json:"hasMeta"`
	HasContext bool   `json:"hasContext"`
	Summary    string `json:"summary,omitempty"`
}

// List enumerates all datasets under the catalog root, sorted by name. A
// missing root reads as an empty catalog.
func (c Catalog) List() ([]Entry, error) {
	entries, err := os.ReadDir(c.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "dataset: read catalog root %s", c.Root)
	}

	var out []Entry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(c.Root, e.Name())
		entry := Entry{
			Name:       e.Name(),
			ImageCount: countImages(dir),
		}
		if meta, metaErr := ReadMeta(dir); metaErr == nil {
			entry.HasMeta = !meta.Known.IsEmpty() || meta.Context != nil || meta.Notes != ""
			entry.HasContext = meta.HasContext()
			if entry.HasContext {
				entry.Summary = meta.ContextSummaryLine()
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Path resolves a dataset name to its directory, failing with ErrNotFound
// when it does not exist.
func (c Catalog) Path(name string) (string, error) {
	dir := filepath.Join(c.Root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", eris.Wrapf(ErrNotFound, "%s", name)
	}
	return dir, nil
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true,
}

func countImages(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			n++
		}
	}
	return n
}
