// Package extract turns raw collection items into the url and caption that
// are persisted for them.
package extract

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sanath1188/insta-collections-insights/pkg/instagram"
)

// PlaceholderURL is used for items without a shortcode under PolicyPlaceholder
const PlaceholderURL = "Unknown URL"

// MissingCodePolicy decides what happens to an item with no shortcode
type MissingCodePolicy string

const (
	// PolicyPlaceholder keys the item as "Unknown URL"; all code-less items
	// then share one key and only the first is kept
	PolicyPlaceholder MissingCodePolicy = "placeholder"
	// PolicySkip drops the item
	PolicySkip MissingCodePolicy = "skip"
	// PolicySynthetic derives a stable per-item key from pk, id or caption
	PolicySynthetic MissingCodePolicy = "synthetic"
)

// ParsePolicy validates a policy name; "" selects the placeholder policy
func ParsePolicy(s string) (MissingCodePolicy, error) {
	switch p := MissingCodePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPlaceholder, nil
	case PolicyPlaceholder, PolicySkip, PolicySynthetic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing code policy %q", s)
	}
}

// Entry is the persisted identity and text of one item
type Entry struct {
	URL     string
	Caption string
}

// syntheticNamespace scopes the v5 UUIDs minted for code-less items
var syntheticNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.instagram.com/reel/"))

// Extract maps an item to its entry. ok is false only when the policy drops
// the item.
func Extract(item instagram.Item, policy MissingCodePolicy) (Entry, bool) {
	media := item.Media
	entry := Entry{Caption: normalizeNewlines(media.CaptionText())}

	if media.Code != "" {
		entry.URL = instagram.ReelURL(media.Code)
		return entry, true
	}

	switch policy {
	case PolicySkip:
		return Entry{}, false
	case PolicySynthetic:
		entry.URL = "unknown:" + syntheticID(media)
	default:
		entry.URL = PlaceholderURL
	}
	return entry, true
}

func syntheticID(media instagram.Media) string {
	var seed string
	switch {
	case media.Pk != "":
		seed = "pk:" + media.Pk.String()
	case media.ID != "":
		seed = "id:" + media.ID
	default:
		seed = "caption:" + media.CaptionText()
	}
	return uuid.NewSHA1(syntheticNamespace, []byte(seed)).String()
}

// normalizeNewlines folds CRLF to LF so a caption survives a CSV round trip
// unchanged.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
