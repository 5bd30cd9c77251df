package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanath1188/insta-collections-insights/pkg/auth"
	"github.com/sanath1188/insta-collections-insights/pkg/errors"
	"github.com/sanath1188/insta-collections-insights/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds, err := auth.ParseCookieHeader("csrftoken=tok; sessionid=sess; mid=m")
	require.NoError(t, err)

	log := logger.NewTestLogger()
	return NewClient(creds, Options{BaseURL: server.URL, Account: "traveller"}, log), log
}

func TestFetchCollectionPageFirstPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feed/collection/178/posts/", r.URL.Path)
		assert.False(t, r.URL.Query().Has("max_id"), "first page must not send max_id")
		assert.Equal(t, "tok", r.Header.Get("X-CSRFToken"))
		assert.Equal(t, AppID, r.Header.Get("X-IG-App-ID"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "csrftoken=tok; sessionid=sess; mid=m", r.Header.Get("Cookie"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Referer"), "/traveller/saved/")

		w.Write([]byte(`{
			"items": [
				{"media": {"pk": 3141592653589793238, "id": "314_1", "code": "ABC", "caption": {"text": "Sunset at Arambol"}}},
				{"media": {"pk": "2", "code": "DEF", "caption": null}}
			],
			"more_available": true,
			"next_max_id": "QVFE123",
			"status": "ok"
		}`))
	})

	page, err := client.FetchCollectionPage(context.Background(), "178", "")
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, "3141592653589793238", page.Items[0].Media.Pk.String())
	assert.Equal(t, "Sunset at Arambol", page.Items[0].Media.CaptionText())
	assert.Equal(t, "", page.Items[1].Media.CaptionText())
	assert.True(t, page.MoreAvailable)
	assert.Equal(t, FlexString("QVFE123"), page.NextMaxID)
}

func TestFetchCollectionPageSendsCursor(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "QVFE123", r.URL.Query().Get("max_id"))
		w.Write([]byte(`{"items": [], "more_available": false, "next_max_id": 98765}`))
	})

	page, err := client.FetchCollectionPage(context.Background(), "178", "QVFE123")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, "98765", page.NextMaxID.String(), "numeric cursor is accepted")
}

func TestFetchCollectionPageStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuth},
		{http.StatusForbidden, errors.ErrorTypeAuth},
		{http.StatusNotFound, errors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit},
		{http.StatusBadGateway, errors.ErrorTypeServerError},
		{http.StatusTeapot, errors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.FetchCollectionPage(context.Background(), "178", "")
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.TypeOf(err))

			var typed *errors.Error
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, tt.status, typed.Code)
		})
	}
}

func TestFetchCollectionPageInvalidJSON(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>login</html>`))
	})

	_, err := client.FetchCollectionPage(context.Background(), "178", "")
	assert.Equal(t, errors.ErrorTypeParsing, errors.TypeOf(err))
	assert.True(t, log.HasMessage("failed to parse JSON response"))
}

func TestFetchCollectionPageNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	creds, _ := auth.ParseCookieHeader("csrftoken=x")
	client := NewClient(creds, Options{BaseURL: url}, logger.NewNopLogger())

	_, err := client.FetchCollectionPage(context.Background(), "178", "")
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
}

func TestFetchCollectionPageCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchCollectionPage(ctx, "178", "")
	assert.Error(t, err)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "x1", "b": 12345678901234567890, "c": null}`), &v))
	assert.Equal(t, FlexString("x1"), v.A)
	assert.Equal(t, FlexString("12345678901234567890"), v.B)
	assert.Equal(t, FlexString(""), v.C)
	assert.Equal(t, FlexString(""), v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &v))
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/api/v1/feed/collection/17/posts/", CollectionURL(BaseURL, "17", ""))
	assert.Equal(t, "https://www.instagram.com/api/v1/feed/collection/17/posts/?max_id=a%2Bb", CollectionURL(BaseURL+"/", "17", "a+b"))
	assert.Equal(t, "https://www.instagram.com/reel/ABC/", ReelURL("ABC"))
	assert.Equal(t, "", ReelURL(""))
	assert.Equal(t, "https://www.instagram.com/", SavedReferer("", "17"))
}
