package model

import "encoding/json"

// KnownInfo holds user-declared ground truth. Populated fields always
// override inferred values and are never subject to confidence filtering.
// Extra carries free-form extension fields that round-trip through the
// sidecar file.
type KnownInfo struct {
	Gender      string `json:"gender,omitempty"`
	Username    string `json:"username,omitempty"`
	Name        string `json:"name,omitempty"`
	AgeRange    string `json:"ageRange,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Location    string `json:"location,omitempty"`
	Occupation  string `json:"occupation,omitempty"`

	Extra map[string]string `json:"-"`
}

// knownFieldKeys are the fixed JSON keys of KnownInfo, used to separate
// extension fields during unmarshaling.
var knownFieldKeys = map[string]bool{
	"gender": true, "username": true, "name": true, "ageRange": true,
	"nationality": true, "location": true, "occupation": true,
}

// IsEmpty reports whether no field at all is populated.
func (k KnownInfo) IsEmpty() bool {
	return k.Gender == "" && k.Username == "" && k.Name == "" &&
		k.AgeRange == "" && k.Nationality == "" && k.Location == "" &&
		k.Occupation == "" && len(k.Extra) == 0
}

// MarshalJSON flattens Extra fields alongside the fixed ones.
func (k KnownInfo) MarshalJSON() ([]byte, error) {
	type fixed KnownInfo
	base, err := json.Marshal(fixed(k))
	if err != nil {
		return nil, err
	}
	if len(k.Extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, val := range k.Extra {
		if !knownFieldKeys[key] {
			merged[key] = val
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON captures unrecognized string fields into Extra.
func (k *KnownInfo) UnmarshalJSON(data []byte) error {
	type fixed KnownInfo
	var f fixed
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*k = KnownInfo(f)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		if knownFieldKeys[key] {
			continue
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		if k.Extra == nil {
			k.Extra = make(map[string]string)
		}
		k.Extra[key] = s
	}
	return nil
}
