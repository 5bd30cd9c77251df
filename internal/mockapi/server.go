// Package mockapi serves fake collection and Gemini endpoints for tests.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sanath1188/insta-collections-insights/pkg/instagram"
)

// Location is the structured answer the Gemini endpoint returns for a
// caption. Nil fields are sent as JSON null.
type Location struct {
	PlaceName *string `json:"place_name"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	Country   *string `json:"country"`
}

// Server simulates the saved collection feed and the generateContent API
type Server struct {
	server *httptest.Server

	mu             sync.RWMutex
	pages          map[string]map[string]instagram.CollectionPage // collection -> cursor -> page
	locations      map[string]Location                            // caption -> answer
	errorResponses map[string]int                                 // endpoint key -> status
	cursors        map[string][]string                            // collection -> requested cursors

	collectionCalls int32
	geminiCalls     int32
}

// New starts a mock server
func New() *Server {
	m := &Server{
		pages:          make(map[string]map[string]instagram.CollectionPage),
		locations:      make(map[string]Location),
		errorResponses: make(map[string]int),
		cursors:        make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/feed/collection/", m.handleCollection)
	mux.HandleFunc("/v1beta/models/", m.handleGenerate)

	m.server = httptest.NewServer(mux)
	return m
}

// URL is the base URL to hand to the clients under test
func (m *Server) URL() string {
	return m.server.URL
}

// Close shuts down the mock server
func (m *Server) Close() {
	m.server.Close()
}

// SetPage registers the page returned for cursor ("" is the first page)
func (m *Server) SetPage(collectionID, cursor string, page instagram.CollectionPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages[collectionID] == nil {
		m.pages[collectionID] = make(map[string]instagram.CollectionPage)
	}
	m.pages[collectionID][cursor] = page
}

// SetLocation registers the answer for a caption. Captions without an
// answer get an all-null location.
func (m *Server) SetLocation(caption string, loc Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[caption] = loc
}

// SetErrorResponse makes an endpoint fail with code. Keys are
// "collection/<id>", "collection/<id>/<cursor>" or "gemini".
func (m *Server) SetErrorResponse(endpoint string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorResponses[endpoint] = code
}

// ClearErrorResponse removes error configuration for an endpoint
func (m *Server) ClearErrorResponse(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errorResponses, endpoint)
}

// CollectionCalls is the number of feed requests served
func (m *Server) CollectionCalls() int {
	return int(atomic.LoadInt32(&m.collectionCalls))
}

// GeminiCalls is the number of generateContent requests served
func (m *Server) GeminiCalls() int {
	return int(atomic.LoadInt32(&m.geminiCalls))
}

// Cursors returns the max_id values requested for a collection, in order
func (m *Server) Cursors(collectionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.cursors[collectionID]...)
}

// ResetCounters resets request counters and the cursor log
func (m *Server) ResetCounters() {
	atomic.StoreInt32(&m.collectionCalls, 0)
	atomic.StoreInt32(&m.geminiCalls, 0)
	m.mu.Lock()
	m.cursors = make(map[string][]string)
	m.mu.Unlock()
}

func (m *Server) getErrorResponse(keys ...string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range keys {
		if code := m.errorResponses[k]; code > 0 {
			return code
		}
	}
	return 0
}

// handleCollection serves /api/v1/feed/collection/{id}/posts/
func (m *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.collectionCalls, 1)

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/feed/collection/")
	id, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != "posts/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Header.Get("X-CSRFToken") == "" || r.Header.Get("Cookie") == "" {
		m.sendError(w, http.StatusUnauthorized)
		return
	}

	cursor := r.URL.Query().Get("max_id")
	m.mu.Lock()
	m.cursors[id] = append(m.cursors[id], cursor)
	m.mu.Unlock()

	if code := m.getErrorResponse("collection/"+id+"/"+cursor, "collection/"+id); code > 0 {
		m.sendError(w, code)
		return
	}

	m.mu.RLock()
	page, found := m.pages[id][cursor]
	m.mu.RUnlock()
	if !found {
		m.sendError(w, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(encodePage(page))
}

// encodePage writes next_max_id as a string, or omits it when empty
func encodePage(page instagram.CollectionPage) map[string]interface{} {
	out := map[string]interface{}{
		"items":          page.Items,
		"more_available": page.MoreAvailable,
		"num_results":    len(page.Items),
		"status":         "ok",
	}
	if page.NextMaxID != "" {
		out["next_max_id"] = page.NextMaxID.String()
	}
	return out
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

// handleGenerate serves /v1beta/models/{model}:generateContent
func (m *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.geminiCalls, 1)

	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("key") == "" {
		m.sendError(w, http.StatusForbidden)
		return
	}
	if code := m.getErrorResponse("gemini"); code > 0 {
		m.sendError(w, code)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
		m.sendError(w, http.StatusBadRequest)
		return
	}
	caption := req.Contents[0].Parts[0].Text

	m.mu.RLock()
	loc := m.locations[caption]
	m.mu.RUnlock()

	payload, _ := json.Marshal(loc)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]interface{}{"text": string(payload)}},
				},
				"finishReason": "STOP",
			},
		},
	})
}

// sendError sends an error response
func (m *Server) sendError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	var message string
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		message = "Login required"
	case http.StatusNotFound:
		message = "Resource not found"
	case http.StatusTooManyRequests:
		message = "Please wait a few minutes before you try again."
	case http.StatusInternalServerError:
		message = "Internal server error"
	default:
		message = fmt.Sprintf("Error %d", code)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": message,
		"status":  "fail",
	})
}

// Item builds a collection item with a shortcode and caption. An empty
// caption produces a null caption object.
func Item(pk, code, caption string) instagram.Item {
	media := instagram.Media{
		Pk:   instagram.FlexString(pk),
		ID:   pk + "_1",
		Code: code,
	}
	if caption != "" {
		media.Caption = &instagram.Caption{Text: caption}
	}
	return instagram.Item{Media: media}
}

// Str returns a pointer to s
func Str(s string) *string {
	return &s
}
