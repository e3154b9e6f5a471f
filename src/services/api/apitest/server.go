// Package apitest is an in-memory fake of the scan backend for tests. It
// speaks the same routes and JSON shapes the real API does, including the
// legacy bare-array chat list, the `detail` error field, and bearer-token
// auth, so client and session tests can run against real HTTP.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scanchat/src/types"
)

// Failure injects a fixed error response into one route.
type Failure struct {
	Status int
	Detail string
}

type account struct {
	user      types.User
	password  string
	remaining float64
	used      float64
	plan      string
	isAdmin   bool
}

type chatRecord struct {
	meta     chatMeta
	messages []chatMessage
}

type chatMeta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title,omitempty"`
	ScanID     string    `json:"scan_id,omitempty"`
	ScanIDs    []string  `json:"scan_ids,omitempty"`
	ListingURL string    `json:"listing_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type chatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Server is the fake backend. Mutate the exported fields before issuing the
// request whose behavior they change.
type Server struct {
	URL string

	mu       sync.Mutex
	accounts map[string]*account // by email
	chats    []chatRecord        // newest first
	scans    map[string]types.ScanResult
	secret   []byte
	requests map[string]int

	// LegacyChatList serves GET /chats as a bare array without pagination.
	LegacyChatList bool
	// ChatPageSize bounds GET /chats pages. Zero means everything in one page.
	ChatPageSize int
	// NewScanFailure, SaveCompareFailure and MeFailure force error responses.
	NewScanFailure     *Failure
	SaveCompareFailure *Failure
	MeFailure          *Failure
	// NewScanLatency delays the new-scan response, for exercising overlap
	// between slow completions and newer user actions.
	NewScanLatency time.Duration

	httpServer *httptest.Server
}

// New starts a fake backend that is shut down when the test ends.
func New(t interface {
	Cleanup(func())
	Helper()
}) *Server {
	t.Helper()
	s := &Server{
		accounts: map[string]*account{},
		scans:    map[string]types.ScanResult{},
		secret:   []byte("apitest-secret"),
		requests: map[string]int{},
	}
	s.httpServer = httptest.NewServer(s.router())
	s.URL = s.httpServer.URL
	t.Cleanup(s.httpServer.Close)
	return s
}

// AddUser seeds an account and returns its user record.
func (s *Server) AddUser(email, password string, remaining float64) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := &account{
		user:      types.User{ID: uuid.NewString(), Email: email, Verified: true, CreatedAt: time.Now()},
		password:  password,
		remaining: remaining,
		plan:      "free",
	}
	s.accounts[email] = acct
	return acct.user
}

// AddAdmin seeds an admin account.
func (s *Server) AddAdmin(email, password string) types.User {
	user := s.AddUser(email, password, 0)
	s.mu.Lock()
	s.accounts[email].isAdmin = true
	s.accounts[email].user.IsAdmin = true
	s.mu.Unlock()
	return user
}

// TokenFor mints a valid bearer token for a seeded account.
func (s *Server) TokenFor(email string) string {
	s.mu.Lock()
	acct := s.accounts[email]
	s.mu.Unlock()
	return s.signToken(acct)
}

// SeedScanChat registers a stored scan chat and returns its id.
func (s *Server) SeedScanChat(title, listingURL string, scan types.ScanResult) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	scan.ListingURL = listingURL
	s.scans[scan.ID] = scan
	id := uuid.NewString()
	s.chats = append([]chatRecord{{
		meta: chatMeta{
			ID: id, Type: types.ChatTypeScan, Title: title,
			ScanID: scan.ID, ListingURL: listingURL, CreatedAt: time.Now(),
		},
	}}, s.chats...)
	return id
}

// SeedCompareChat registers a stored compare chat over two scan ids.
func (s *Server) SeedCompareChat(title, answer string, scanIDs ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.chats = append([]chatRecord{{
		meta: chatMeta{
			ID: id, Type: types.ChatTypeCompare, Title: title,
			ScanIDs: scanIDs, CreatedAt: time.Now(),
		},
		messages: []chatMessage{
			{Role: types.RoleAssistant, Content: answer, CreatedAt: time.Now()},
		},
	}}, s.chats...)
	return id
}

// RequestCount reports how many times a route was hit, keyed as
// "METHOD /path" with path parameters as registered (e.g. "GET /chat/{id}").
func (s *Server) RequestCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

func (s *Server) count(r *http.Request) {
	routeCtx := chi.RouteContext(r.Context())
	key := r.Method + " " + routeCtx.RoutePattern()
	s.mu.Lock()
	s.requests[key]++
	s.mu.Unlock()
}

func (s *Server) signToken(acct *account) string {
	claims := jwt.MapClaims{
		"sub":   acct.user.ID,
		"email": acct.user.Email,
		"admin": acct.isAdmin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) authenticate(r *http.Request) *account {
	header := r.Header.Get("Authorization")
	if len(header) < 8 || header[:7] != "Bearer " {
		return nil
	}
	token, err := jwt.Parse(header[7:], func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	email, _ := claims["email"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email]
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			s.count(req)
		})
	})

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
	})
	r.Post("/auth/password-reset", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	})
	r.Post("/auth/password-reset-confirm", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/me", s.handleMe)
		r.Get("/chats", s.handleListChats)
		r.Get("/chat/{id}", s.handleGetChat)
		r.Post("/chat/new-scan", s.handleNewScan)
		r.Post("/chat/{id}/ask", s.handleAsk)
		r.Post("/chat/pre-scan/ask", s.handleAsk)
		r.Post("/compare", s.handleCompare)
		r.Post("/save-compare", s.handleSaveCompare)
		r.Get("/scan/{id}", s.handleGetScan)

		r.Post("/stripe/create-checkout", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"checkout_url": "https://checkout.stripe.test/session"})
		})
		r.Post("/stripe/verify-payment", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
		})
		r.Post("/stripe/cancel-subscription", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		})
		r.Post("/stripe/simulate-webhook", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	r.Post("/admin/auth/login", s.handleAdminLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/admin/users", s.handleAdminUsers)
		r.Get("/admin/scans", s.handleAdminScans)
		r.Get("/admin/analytics/revenue", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]any{
				"total_revenue": 1240.0, "monthly_revenue": 310.0,
				"active_plans": 12, "cancellations": 2,
			})
		})
		r.Get("/admin/dashboard/stats", s.handleAdminDashboard)
		r.Get("/admin/missing-listings", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]any{"listings": []any{}})
		})
		r.Get("/admin/manually-added-listings", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]any{"listings": []any{}})
		})
		r.Post("/admin/manually-added-listings", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			respondJSON(w, http.StatusOK, map[string]any{
				"id": uuid.NewString(), "listing_url": body["listing_url"],
				"title": body["title"], "added_by": "admin", "created_at": time.Now(),
			})
		})
		r.Delete("/admin/manually-added-listings/{id}", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		})
		r.Post("/admin/cache/flush", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
		})
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authenticate(r) == nil {
			respondDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct := s.authenticate(r)
		if acct == nil || !acct.isAdmin {
			respondDetail(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[body.Email]
	s.mu.Unlock()
	if !ok || acct.password != body.Password {
		respondDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": s.signToken(acct), "user": acct.user})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	acct, ok := s.accounts[body.Email]
	s.mu.Unlock()
	if !ok || acct.password != body.Password || !acct.isAdmin {
		respondDetail(w, http.StatusUnauthorized, "Invalid admin credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": s.signToken(acct), "user": acct.user})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password, Name string }
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[body.Email]; exists {
		s.mu.Unlock()
		respondDetail(w, http.StatusConflict, "An account with this email already exists")
		return
	}
	acct := &account{
		user:      types.User{ID: uuid.NewString(), Email: body.Email, Name: body.Name, CreatedAt: time.Now()},
		password:  body.Password,
		remaining: 3,
		plan:      "free",
	}
	s.accounts[body.Email] = acct
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"token": s.signToken(acct), "user": acct.user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if f := s.MeFailure; f != nil {
		respondDetail(w, f.Status, f.Detail)
		return
	}
	acct := s.authenticate(r)
	respondJSON(w, http.StatusOK, map[string]any{
		"user":      acct.user,
		"remaining": acct.remaining,
		"used":      acct.used,
		"plan":      acct.plan,
		"limits":    types.PlanLimits{Scans: 3, Questions: 10, Compares: 3},
	})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]map[string]any, 0, len(s.chats))
	for _, c := range s.chats {
		summaries = append(summaries, map[string]any{
			"id": c.meta.ID, "type": c.meta.Type, "title": c.meta.Title,
			"created_at": c.meta.CreatedAt, "scan_id": c.meta.ScanID,
			"listing_url": c.meta.ListingURL,
		})
	}

	if s.LegacyChatList {
		respondJSON(w, http.StatusOK, summaries)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size := s.ChatPageSize
	if size <= 0 {
		size = len(summaries)
	}
	start := (page - 1) * size
	if start > len(summaries) {
		start = len(summaries)
	}
	end := start + size
	if end > len(summaries) {
		end = len(summaries)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"chats": summaries[start:end],
		"pagination": map[string]any{
			"page":     page,
			"has_more": end < len(summaries),
		},
	})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.meta.ID == id {
			respondJSON(w, http.StatusOK, map[string]any{"chat": c.meta, "messages": c.messages})
			return
		}
	}
	respondDetail(w, http.StatusNotFound, "Chat not found")
}

// RemoveScan drops a stored scan so detail hydration for it fails.
func (s *Server) RemoveScan(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scans, id)
}

func (s *Server) handleNewScan(w http.ResponseWriter, r *http.Request) {
	if d := s.NewScanLatency; d > 0 {
		time.Sleep(d)
	}
	if f := s.NewScanFailure; f != nil {
		respondDetail(w, f.Status, f.Detail)
		return
	}
	acct := s.authenticate(r)
	var body struct {
		ListingURL string `json:"listing_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ListingURL == "" {
		respondDetail(w, http.StatusBadRequest, "A listing URL is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.remaining < 1 {
		respondDetail(w, http.StatusPaymentRequired, "You have no scans remaining")
		return
	}
	acct.remaining--
	acct.used++

	scan := types.ScanResult{
		ID:         uuid.NewString(),
		ListingURL: body.ListingURL,
		Title:      "Listing " + body.ListingURL,
		Location:   "Lisbon, Portugal",
		Label:      "Looks legitimate",
		Score:      82,
	}
	s.scans[scan.ID] = scan
	chatID := uuid.NewString()
	s.chats = append([]chatRecord{{
		meta: chatMeta{
			ID: chatID, Type: types.ChatTypeScan, Title: scan.Title,
			ScanID: scan.ID, ListingURL: body.ListingURL, CreatedAt: time.Now(),
		},
	}}, s.chats...)

	respondJSON(w, http.StatusOK, map[string]any{"chat_id": chatID, "scan": scan})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Question == "" {
		respondDetail(w, http.StatusBadRequest, "A question is required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"answer": "Answer to: " + body.Question})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ScanAURL string `json:"scan_a_url"`
		ScanBURL string `json:"scan_b_url"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ScanAURL == "" || body.ScanBURL == "" {
		respondDetail(w, http.StatusBadRequest, "Two listing URLs are required")
		return
	}
	answer := fmt.Sprintf("Comparing %s against %s", body.ScanAURL, body.ScanBURL)
	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleSaveCompare(w http.ResponseWriter, r *http.Request) {
	if f := s.SaveCompareFailure; f != nil {
		respondDetail(w, f.Status, f.Detail)
		return
	}
	var body struct {
		ScanAURL string `json:"scan_a_url"`
		ScanBURL string `json:"scan_b_url"`
		Answer   string `json:"answer"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var scanIDs []string
	for _, url := range []string{body.ScanAURL, body.ScanBURL} {
		for id, scan := range s.scans {
			if scan.ListingURL == url {
				scanIDs = append(scanIDs, id)
			}
		}
	}
	chatID := uuid.NewString()
	s.chats = append([]chatRecord{{
		meta: chatMeta{
			ID: chatID, Type: types.ChatTypeCompare,
			Title: "Comparison #" + chatID[:8], ScanIDs: scanIDs, CreatedAt: time.Now(),
		},
		messages: []chatMessage{
			{Role: types.RoleAssistant, Content: body.Answer, CreatedAt: time.Now()},
		},
	}}, s.chats...)
	respondJSON(w, http.StatusOK, map[string]string{"chat_id": chatID})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	scan, ok := s.scans[id]
	s.mu.Unlock()
	if !ok {
		respondDetail(w, http.StatusNotFound, "Scan not found")
		return
	}
	respondJSON(w, http.StatusOK, scan)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]map[string]any, 0, len(s.accounts))
	for _, acct := range s.accounts {
		users = append(users, map[string]any{
			"user": acct.user, "plan": acct.plan,
			"used": acct.used, "remaining": acct.remaining,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleAdminScans(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scans := make([]map[string]any, 0, len(s.scans))
	for _, scan := range s.scans {
		scans = append(scans, map[string]any{
			"id": scan.ID, "listing_url": scan.ListingURL,
			"label": scan.Label, "created_at": time.Now(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	compares := 0
	for _, c := range s.chats {
		if c.meta.Type == types.ChatTypeCompare {
			compares++
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"users": len(s.accounts), "scans": len(s.scans),
		"compares": compares, "chats": len(s.chats),
	})
}
