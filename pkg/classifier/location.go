package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt is the fixed instruction sent with every caption
const SystemPrompt = `You extract location details from Instagram captions.
Given a caption, identify the specific venue or place name, the city, the state or region, and the country it refers to.
Infer missing fields from context when you are reasonably confident (for example, a well-known landmark implies its city and country).
Use null for any field that cannot be determined.
Respond with a JSON object with exactly these keys: "place_name", "city", "state", "country".`

// LocationInfo holds the classified location. Nil fields are unknown.
type LocationInfo struct {
	PlaceName *string `json:"place_name"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	Country   *string `json:"country"`
}

// IsEmpty reports whether every field is unknown
func (l LocationInfo) IsEmpty() bool {
	return l.PlaceName == nil && l.City == nil && l.State == nil && l.Country == nil
}

// String renders the known parts, most specific first
func (l LocationInfo) String() string {
	var parts []string
	for _, p := range []*string{l.PlaceName, l.City, l.State, l.Country} {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}

// ParseLocationJSON decodes the four-field object a model returns. A
// surrounding markdown code fence is tolerated. Values are normalized with
// Normalize.
func ParseLocationJSON(text string) (LocationInfo, error) {
	text = stripCodeFence(strings.TrimSpace(text))

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return LocationInfo{}, fmt.Errorf("decode location object: %w", err)
	}

	field := func(key string) *string {
		v, ok := raw[key]
		if !ok || v == nil {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return nil
		}
		return Normalize(s)
	}

	return LocationInfo{
		PlaceName: field("place_name"),
		City:      field("city"),
		State:     field("state"),
		Country:   field("country"),
	}, nil
}

// Normalize trims a value and maps "", "null" and "unknown" to nil
func Normalize(s string) *string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "unknown":
		return nil
	}
	return &s
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
