package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CollectionPage is one page of the saved collection feed
type CollectionPage struct {
	Items         []Item     `json:"items"`
	MoreAvailable bool       `json:"more_available"`
	NextMaxID     FlexString `json:"next_max_id"`
	NumResults    int        `json:"num_results"`
	Status        string     `json:"status"`
}

// Item wraps a saved media entry
type Item struct {
	Media Media `json:"media"`
}

// Media is the subset of a media object the collector reads
type Media struct {
	Pk          FlexString `json:"pk"`
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	MediaType   int        `json:"media_type"`
	ProductType string     `json:"product_type"`
	Caption     *Caption   `json:"caption"`
	TakenAt     int64      `json:"taken_at"`
}

// Caption holds the caption text; the whole object is null for uncaptioned
// posts
type Caption struct {
	Text string `json:"text"`
}

// CaptionText returns the caption or "" when there is none
func (m Media) CaptionText() string {
	if m.Caption == nil {
		return ""
	}
	return m.Caption.Text
}

// FlexString decodes a JSON string or number into a string. Null and absent
// values decode to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
