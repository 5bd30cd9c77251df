package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// CollectionEndpoint is the path pattern for a saved collection's posts
	CollectionEndpoint = "/api/v1/feed/collection/%s/posts/"

	// AppID is the web client's application id sent as x-ig-app-id
	AppID = "936619743392459"

	// ASBDID is sent as x-asbd-id by the web client
	ASBDID = "359341"

	// DefaultUserAgent mirrors a desktop Chrome build
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36"
)

// CollectionURL builds the page URL for a collection. The max_id parameter
// is only sent when the cursor is non-empty.
func CollectionURL(baseURL, collectionID, maxID string) string {
	u := strings.TrimRight(baseURL, "/") + fmt.Sprintf(CollectionEndpoint, url.PathEscape(collectionID))
	if maxID == "" {
		return u
	}
	params := url.Values{}
	params.Set("max_id", maxID)
	return u + "?" + params.Encode()
}

// ReelURL is the public link for a reel shortcode
func ReelURL(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("%s/reel/%s/", BaseURL, code)
}

// SavedReferer is the page a browser would be on when paging a collection
func SavedReferer(account, collectionID string) string {
	if account == "" {
		return BaseURL + "/"
	}
	return fmt.Sprintf("%s/%s/saved/collection/%s/", BaseURL, account, collectionID)
}
