package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DemoAccount is a login known to the mock backend.
type DemoAccount struct {
	Email    string
	Password string
	Name     string
	Role     string
	IsAdmin  bool
}

// SubjectID is the stable id minted into the account's tokens.
func (acc DemoAccount) SubjectID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.ToLower(acc.Email))).String()
}

// DefaultDemoAccounts returns one login per role, all with password "demo1234".
func DefaultDemoAccounts() []DemoAccount {
	return []DemoAccount{
		{Email: "admin@agency.test", Password: "demo1234", Name: "Ada Admin", Role: "admin", IsAdmin: true},
		{Email: "customer@agency.test", Password: "demo1234", Name: "Carla Customer", Role: "customer"},
		{Email: "coworker@agency.test", Password: "demo1234", Name: "Cole Coworker", Role: "coworker"},
		{Email: "user@agency.test", Password: "demo1234", Name: "Uma User", Role: "user"},
	}
}

// MockBackend is an in-memory implementation of the agency REST API used by
// the demo server and tests. It speaks the same envelope as the real API.
type MockBackend struct {
	mu        sync.RWMutex
	resources map[string][]Record
	accounts  map[string]DemoAccount
	signKey   []byte
	now       func() time.Time
	tokenTTL  time.Duration
	validate  bool
}

// MockOption configures the backend.
type MockOption func(*MockBackend)

// WithAccounts registers login accounts.
func WithAccounts(accounts ...DemoAccount) MockOption {
	return func(m *MockBackend) {
		for _, acc := range accounts {
			m.accounts[strings.ToLower(acc.Email)] = acc
		}
	}
}

// WithRecordValidation rejects writes that fail ValidateRecord.
func WithRecordValidation(enabled bool) MockOption {
	return func(m *MockBackend) { m.validate = enabled }
}

// WithMockClock overrides the clock used for timestamps and token expiry.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockBackend) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMockBackend returns an empty backend.
func NewMockBackend(opts ...MockOption) *MockBackend {
	m := &MockBackend{
		resources: map[string][]Record{},
		accounts:  map[string]DemoAccount{},
		signKey:   []byte("agency-demo"),
		now:       time.Now,
		tokenTTL:  8 * time.Hour,
		validate:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Seed appends records to resource, assigning ids where missing.
func (m *MockBackend) Seed(resource string, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resource = strings.Trim(resource, "/")
	for _, rec := range records {
		m.resources[resource] = append(m.resources[resource], m.stamp(cloneRecord(rec)))
	}
}

// Records returns a snapshot of resource.
func (m *MockBackend) Records(resource string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.resources[resource]))
	for _, rec := range m.resources[resource] {
		out = append(out, cloneRecord(rec))
	}
	return out
}

// IssueToken mints a token for acc the way the login endpoint does.
func (m *MockBackend) IssueToken(acc DemoAccount) (string, error) {
	claims := jwt.MapClaims{
		"id":      acc.SubjectID(),
		"name":    acc.Name,
		"email":   acc.Email,
		"role":    acc.Role,
		"isAdmin": acc.IsAdmin,
		"exp":     m.now().Add(m.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey)
}

func (m *MockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	if strings.HasPrefix(path, "auth/") {
		m.serveAuth(w, r, strings.TrimPrefix(path, "auth/"))
		return
	}
	resource, id, _ := strings.Cut(path, "/")
	if resource == "" {
		writeEnvelope(w, http.StatusNotFound, Envelope{Message: "Not found"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		if id != "" {
			m.get(w, resource, id)
			return
		}
		m.list(w, r, resource)
	case http.MethodPost:
		m.create(w, r, resource)
	case http.MethodPut, http.MethodPatch:
		m.update(w, r, resource, id, r.Method == http.MethodPatch)
	case http.MethodDelete:
		if id == "" {
			id = r.URL.Query().Get("id")
		}
		m.delete(w, resource, id)
	default:
		writeEnvelope(w, http.StatusMethodNotAllowed, Envelope{Message: "Method not allowed"})
	}
}

func (m *MockBackend) list(w http.ResponseWriter, r *http.Request, resource string) {
	query := r.URL.Query()
	page := positive(query.Get("page"), 1)
	limit := positive(query.Get("limit"), 10)

	m.mu.RLock()
	matched := make([]Record, 0, len(m.resources[resource]))
	for _, rec := range m.resources[resource] {
		if matches(rec, query) {
			matched = append(matched, cloneRecord(rec))
		}
	}
	m.mu.RUnlock()

	if key := query.Get("sort"); key != "" {
		desc := strings.EqualFold(query.Get("order"), "desc")
		slices.SortStableFunc(matched, func(a, b Record) int {
			cmp := compareValues(a[key], b[key])
			if desc {
				return -cmp
			}
			return cmp
		})
	}

	total := len(matched)
	pages := max(1, (total+limit-1)/limit)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	data, _ := json.Marshal(matched[start:end])
	writeEnvelope(w, http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			CurrentPage:  page,
			TotalPages:   pages,
			TotalItems:   total,
			ItemsPerPage: limit,
			HasNextPage:  page < pages,
			HasPrevPage:  page > 1,
		},
	})
}

func (m *MockBackend) get(w http.ResponseWriter, resource, id string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx := m.indexOf(resource, id); idx >= 0 {
		writeRecord(w, http.StatusOK, m.resources[resource][idx], "")
		return
	}
	writeEnvelope(w, http.StatusNotFound, Envelope{Message: "Record not found"})
}

func (m *MockBackend) create(w http.ResponseWriter, r *http.Request, resource string) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	if m.validate {
		if err := ValidateRecord(resource, rec); err != nil {
			writeEnvelope(w, http.StatusBadRequest, Envelope{Message: validationMessage(err)})
			return
		}
	}
	m.mu.Lock()
	rec = m.stamp(rec)
	m.resources[resource] = append(m.resources[resource], rec)
	m.mu.Unlock()
	writeRecord(w, http.StatusCreated, rec, "Created successfully")
}

func (m *MockBackend) update(w http.ResponseWriter, r *http.Request, resource, id string, partial bool) {
	patch, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(resource, id)
	if idx < 0 {
		writeEnvelope(w, http.StatusNotFound, Envelope{Message: "Record not found"})
		return
	}
	current := m.resources[resource][idx]
	next := Record{"_id": current["_id"], "createdAt": current["createdAt"]}
	if partial {
		for k, v := range current {
			next[k] = v
		}
	}
	for k, v := range patch {
		if k == "_id" {
			continue
		}
		next[k] = v
	}
	if m.validate {
		if err := ValidateRecord(resource, next); err != nil {
			writeEnvelope(w, http.StatusBadRequest, Envelope{Message: validationMessage(err)})
			return
		}
	}
	next["updatedAt"] = m.now().UTC().Format(time.RFC3339)
	m.resources[resource][idx] = next
	writeRecord(w, http.StatusOK, next, "Updated successfully")
}

func (m *MockBackend) delete(w http.ResponseWriter, resource, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(resource, id)
	if idx < 0 {
		writeEnvelope(w, http.StatusNotFound, Envelope{Message: "Record not found"})
		return
	}
	m.resources[resource] = slices.Delete(m.resources[resource], idx, idx+1)
	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Message: "Deleted successfully"})
}

func (m *MockBackend) serveAuth(w http.ResponseWriter, r *http.Request, action string) {
	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, Envelope{Message: "Method not allowed"})
		return
	}
	payload, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	email := strings.ToLower(fmt.Sprint(payload["email"]))
	switch action {
	case "login":
		m.mu.RLock()
		acc, found := m.accounts[email]
		m.mu.RUnlock()
		if !found || acc.Password != fmt.Sprint(payload["password"]) {
			writeEnvelope(w, http.StatusUnauthorized, Envelope{Message: "Invalid email or password"})
			return
		}
		m.writeToken(w, http.StatusOK, acc, "Login successful")
	case "signup":
		password, _ := payload["password"].(string)
		if validate.Var(email, "required,email") != nil || len(password) < 6 {
			writeEnvelope(w, http.StatusBadRequest, Envelope{Message: "A valid email and a password of at least 6 characters are required"})
			return
		}
		m.mu.Lock()
		if _, exists := m.accounts[email]; exists {
			m.mu.Unlock()
			writeEnvelope(w, http.StatusConflict, Envelope{Message: "An account with this email already exists"})
			return
		}
		name, _ := payload["name"].(string)
		acc := DemoAccount{Email: email, Password: password, Name: name, Role: "user"}
		m.accounts[email] = acc
		m.mu.Unlock()
		m.writeToken(w, http.StatusCreated, acc, "Account created")
	case "forgot-password":
		writeEnvelope(w, http.StatusOK, Envelope{Success: true, Message: "If the account exists, a reset link has been sent"})
	default:
		writeEnvelope(w, http.StatusNotFound, Envelope{Message: "Not found"})
	}
}

func (m *MockBackend) writeToken(w http.ResponseWriter, status int, acc DemoAccount, message string) {
	token, err := m.IssueToken(acc)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, Envelope{Message: "Could not issue token"})
		return
	}
	data, _ := json.Marshal(map[string]any{
		"token": token,
		"user":  Record{"email": acc.Email, "name": acc.Name, "role": acc.Role},
	})
	writeEnvelope(w, status, Envelope{Success: true, Data: data, Message: message})
}

func (m *MockBackend) stamp(rec Record) Record {
	if id, _ := rec["_id"].(string); id == "" {
		rec["_id"] = uuid.NewString()
	}
	if _, ok := rec["createdAt"]; !ok {
		rec["createdAt"] = m.now().UTC().Format(time.RFC3339)
	}
	return rec
}

func (m *MockBackend) indexOf(resource, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(m.resources[resource], func(rec Record) bool {
		return fmt.Sprint(rec["_id"]) == id
	})
}

var reservedParams = map[string]bool{"page": true, "limit": true, "sort": true, "order": true}

func matches(rec Record, query map[string][]string) bool {
	for key, values := range query {
		if reservedParams[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		want := strings.ToLower(values[0])
		if key == "search" {
			if !slices.ContainsFunc(recordValues(rec), func(v string) bool {
				return strings.Contains(strings.ToLower(v), want)
			}) {
				return false
			}
			continue
		}
		got, ok := rec[key]
		if !ok || strings.ToLower(fmt.Sprint(got)) != want {
			return false
		}
	}
	return true
}

func recordValues(rec Record) []string {
	out := make([]string, 0, len(rec))
	for _, v := range rec {
		if v != nil {
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func compareValues(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (Record, bool) {
	rec := Record{}
	if r.Body == nil {
		return rec, true
	}
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil && !errors.Is(err, io.EOF) {
		writeEnvelope(w, http.StatusBadRequest, Envelope{Message: "Invalid JSON body"})
		return nil, false
	}
	return rec, true
}

func validationMessage(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || len(rich.ValidationErrors) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(rich.ValidationErrors))
	for _, fe := range rich.ValidationErrors {
		parts = append(parts, fe.Message)
	}
	return strings.Join(parts, "; ")
}

func writeRecord(w http.ResponseWriter, status int, rec Record, message string) {
	data, _ := json.Marshal(rec)
	writeEnvelope(w, status, Envelope{Success: true, Data: data, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
