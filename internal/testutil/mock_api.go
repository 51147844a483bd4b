// Package testutil provides a mock repository API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/michaekong/memocloud/pkg/memoire"
)

// DefaultUniversity is the slug the mock serves under.
const DefaultUniversity = "ecole-des-travaux"

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedPost is one POST body received by the mock.
type RecordedPost struct {
	Path string
	Body map[string]any
}

// MockAPI is a configurable in-memory repository API.
// Exported fields may be set before the first request.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	University string
	Token      string // accepted bearer token, "" accepts any non-empty token
	Records    []memoire.Memoire
	PageSize   int
	FailPage   int  // page that answers 500, 0 for none
	BareArray  bool // serve the listing as one bare array instead of pages
	Stats      memoire.Stats
	Years      []int
	Domains    []memoire.Domain
	Comments   map[int][]memoire.Comment
	Profile    memoire.Profile
	Accounts   map[string]string // email to password for /auth/login/

	// Tracking
	RequestCount      int
	ConditionalCount  int
	ListingCalls      int
	LastOrdering      string
	LastRequestHeader http.Header
	Posts             []RecordedPost
}

// NewMockAPI creates a mock API server with no records.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]http.HandlerFunc),
		University: DefaultUniversity,
		PageSize:   10,
		Comments:   make(map[int][]memoire.Comment),
		Accounts:   make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/memoires/universites/{u}/memoires/{$}", mock.listing)
	mux.HandleFunc("GET /api/memoires/universites/{u}/stats/{$}", mock.stats)
	mux.HandleFunc("GET /api/memoires/universites/{u}/memoires/annees/{$}", mock.years)
	mux.HandleFunc("GET /api/memoires/universites/{u}/memoires/mes-stats/{$}", mock.authed(mock.myStats))
	mux.HandleFunc("GET /api/memoires/universites/{u}/memoires/{id}/commentaires/{$}", mock.authed(mock.comments))
	mux.HandleFunc("GET /api/universites/domaines/{$}", mock.domains)
	mux.HandleFunc("GET /api/auth/me/{$}", mock.authed(mock.me))
	mux.HandleFunc("POST /api/auth/login/{$}", mock.login)
	mux.HandleFunc("POST /api/auth/register/{$}", mock.register)
	mux.HandleFunc("POST /api/auth/change-password/{$}", mock.authed(mock.changePassword))
	mux.HandleFunc("POST /api/auth/reset-password/{$}", mock.record(http.StatusOK))
	mux.HandleFunc("GET /api/interactions/telechargements/mes-telechargements/{$}", mock.authed(mock.myDownloads))
	mux.HandleFunc("GET /api/interactions/universites/{u}/interactions/likes/{$}", mock.authed(mock.myLikes))
	mux.HandleFunc("POST /api/interactions/commentaires/{$}", mock.authed(mock.record(http.StatusCreated)))
	mux.HandleFunc("POST /api/interactions/telechargements/telecharger/{$}", mock.authed(mock.record(http.StatusCreated)))
	mux.HandleFunc("POST /api/interactions/likes/toggle/{$}", mock.authed(mock.record(http.StatusOK)))
	mux.HandleFunc("POST /api/interactions/notations/{$}", mock.authed(mock.record(http.StatusCreated)))

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	}))

	return mock
}

// URL returns the API base URL (server root + "/api").
func (m *MockAPI) URL() string {
	return m.server.URL + "/api"
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.ListingCalls = 0
	m.LastRequestHeader = nil
	m.Posts = nil
}

// SetHandler overrides the handler for an exact path (including the /api prefix).
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetListingCalls returns the number of listing page requests.
func (m *MockAPI) GetListingCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ListingCalls
}

// GetPosts returns a copy of the recorded POST bodies.
func (m *MockAPI) GetPosts() []RecordedPost {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedPost(nil), m.Posts...)
}

// ListingPath returns the listing path for the mock's university.
func (m *MockAPI) ListingPath() string {
	return fmt.Sprintf("/api/memoires/universites/%s/memoires/", m.University)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (m *MockAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		want := m.Token
		m.mu.RUnlock()

		got := r.Header.Get("Authorization")
		if got == "" || (want != "" && got != "Bearer "+want) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Informations d'authentification non fournies.",
			})
			return
		}
		next(w, r)
	}
}

func (m *MockAPI) listing(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	m.mu.Lock()
	m.ListingCalls++
	m.LastOrdering = r.URL.Query().Get("ordering")
	records := m.Records
	size := m.PageSize
	failPage := m.FailPage
	bare := m.BareArray
	m.mu.Unlock()

	if page == failPage {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Erreur serveur"})
		return
	}

	if bare {
		writeJSON(w, http.StatusOK, records)
		return
	}

	if size <= 0 {
		size = 10
	}
	start := (page - 1) * size
	if start > len(records) {
		start = len(records)
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}

	var next *string
	if end < len(records) {
		u := fmt.Sprintf("%s%s?page=%d", m.server.URL, r.URL.Path, page+1)
		next = &u
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"next":    next,
		"results": records[start:end],
	})
}

func (m *MockAPI) stats(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.Stats)
}

func (m *MockAPI) years(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"annees": m.Years})
}

func (m *MockAPI) domains(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	domains := m.Domains
	if domains == nil {
		domains = []memoire.Domain{}
	}
	writeJSON(w, http.StatusOK, domains)
}

func (m *MockAPI) comments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Introuvable"})
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.Comments[id]
	if list == nil {
		list = []memoire.Comment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (m *MockAPI) me(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.Profile)
}

// AccessToken is what /auth/login/ hands out: Token when set, else a fixed value.
func (m *MockAPI) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Token != "" {
		return m.Token
	}
	return "mock-access-token"
}

// AddAccount registers credentials accepted by /auth/login/.
func (m *MockAPI) AddAccount(email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[email] = password
}

func decodeBody(r *http.Request) (map[string]string, bool) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, false
	}
	return body, true
}

func (m *MockAPI) login(w http.ResponseWriter, r *http.Request) {
	// Like the real API, a bad bearer token is refused before the view runs.
	if auth := r.Header.Get("Authorization"); auth != "" && auth != "Bearer "+m.AccessToken() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Le jeton est invalide ou expiré"})
		return
	}
	body, ok := decodeBody(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON invalide"})
		return
	}

	m.mu.Lock()
	want, known := m.Accounts[body["email"]]
	if known && want == body["password"] {
		m.Posts = append(m.Posts, RecordedPost{Path: r.URL.Path, Body: map[string]any{"email": body["email"]}})
	}
	m.mu.Unlock()

	if !known || want != body["password"] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Email ou mot de passe incorrect"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  m.AccessToken(),
		"refresh": "mock-refresh-token",
	})
}

func (m *MockAPI) register(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON invalide"})
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Accounts[body["email"]]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Un utilisateur avec cet email existe déjà."}})
		return
	}
	m.Accounts[body["email"]] = body["password"]
	m.Posts = append(m.Posts, RecordedPost{Path: r.URL.Path, Body: map[string]any{
		"email":    body["email"],
		"username": body["username"],
	}})
	writeJSON(w, http.StatusCreated, map[string]string{"email": body["email"]})
}

// changePassword acts on the account of Profile.Email.
func (m *MockAPI) changePassword(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON invalide"})
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email := m.Profile.Email
	if current, known := m.Accounts[email]; !known || current != body["old_password"] {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"old_password": {"Mot de passe actuel incorrect."}})
		return
	}
	m.Accounts[email] = body["new_password"]
	m.Posts = append(m.Posts, RecordedPost{Path: r.URL.Path, Body: map[string]any{"email": email}})
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Mot de passe modifié"})
}

func (m *MockAPI) myStats(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]int{
		"total_memoires":        len(m.Records),
		"total_telechargements": m.Stats.TotalDownloads,
		"total_likes":           m.Stats.TotalLikes,
	})
}

func (m *MockAPI) myDownloads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.interactionsFor("/interactions/telechargements/telecharger/", "memoire"))
}

func (m *MockAPI) myLikes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.interactionsFor("/interactions/likes/toggle/", "memoire_id"))
}

// interactionsFor derives a user's interaction list from the POSTs received so far.
func (m *MockAPI) interactionsFor(suffix, field string) []memoire.Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	titles := make(map[int]string, len(m.Records))
	for _, rec := range m.Records {
		titles[rec.ID] = rec.Title
	}

	out := []memoire.Interaction{}
	for _, p := range m.Posts {
		if p.Path != "/api"+suffix {
			continue
		}
		id, _ := p.Body[field].(float64)
		out = append(out, memoire.Interaction{
			MemoireID:    int(id),
			MemoireTitle: titles[int(id)],
			Date:         time.Now().Format(time.RFC3339),
		})
	}
	return out
}

func (m *MockAPI) record(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON invalide"})
			return
		}
		if note, ok := body["note"].(float64); ok && (note < 1 || note > 5) {
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				"note": {"Assurez-vous que cette valeur est comprise entre 1 et 5."},
			})
			return
		}

		m.mu.Lock()
		m.Posts = append(m.Posts, RecordedPost{Path: r.URL.Path, Body: body})
		m.mu.Unlock()

		writeJSON(w, status, body)
	}
}

// NewHealthyResponse creates a standard 200 OK JSON response with cache validators.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":         `"test-etag-123"`,
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Requête ralentie."}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Erreur interne"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// Rating returns a pointer to r, for building records.
func Rating(r float64) *float64 {
	return &r
}

// Record builds a minimal record for fixtures.
func Record(id int, title string, year any) memoire.Memoire {
	return memoire.Memoire{
		ID:           id,
		Title:        title,
		Year:         memoire.FlexString(fmt.Sprint(year)),
		Institutions: []string{"École des Travaux"},
	}
}
