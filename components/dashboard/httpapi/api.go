package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

// Handlers exposes HTTP endpoints backed by shared commands.
type Handlers struct {
	Page      gocommand.Querier[dashboard.ResolveRequest, dashboard.Page]
	Submit    gocommand.Commander[commands.SubmitUnitInput]
	Delete    gocommand.Commander[commands.DeleteRecordInput]
	Export    gocommand.Commander[commands.ExportTableInput]
	Refresh   gocommand.Commander[commands.NotifyRecordChangedInput]
	Logout    gocommand.Commander[commands.LogoutInput]
	Broadcast *dashboard.BroadcastHook

	Login          gocommand.Commander[commands.LoginInput]
	Signup         gocommand.Commander[commands.SignupInput]
	ForgotPassword gocommand.Commander[commands.ForgotPasswordInput]

	// CookieName is the credential cookie; defaults to session.DefaultCookieName.
	CookieName string
	Logger     *slog.Logger
}

// Register mounts the handlers on mux under base using method patterns.
func (h *Handlers) Register(mux *http.ServeMux, base string) {
	base = strings.TrimRight(base, "/")
	mux.HandleFunc("GET "+base+"/_config", h.HandlePage)
	mux.HandleFunc("POST "+base+"/units/{key}/submit", func(w http.ResponseWriter, r *http.Request) {
		h.HandleSubmit(w, r, r.PathValue("key"))
	})
	mux.HandleFunc("POST "+base+"/units/{key}/records/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		h.HandleDelete(w, r, r.PathValue("key"), r.PathValue("id"))
	})
	mux.HandleFunc("GET "+base+"/units/{key}/export.pdf", func(w http.ResponseWriter, r *http.Request) {
		h.HandleExport(w, r, r.PathValue("key"))
	})
	mux.HandleFunc("POST "+base+"/refresh", h.HandleRefresh)
	mux.HandleFunc("POST "+base+"/logout", h.HandleLogout)
	if h.Login != nil {
		mux.HandleFunc("POST "+base+"/auth/login", h.HandleLogin)
	}
	if h.Signup != nil {
		mux.HandleFunc("POST "+base+"/auth/signup", h.HandleSignup)
	}
	if h.ForgotPassword != nil {
		mux.HandleFunc("POST "+base+"/auth/forgot-password", h.HandleForgotPassword)
	}
	if h.Broadcast != nil {
		mux.HandleFunc("GET "+base+"/ws", h.authenticated(h.Broadcast.ServeWebSocket))
		mux.HandleFunc("GET "+base+"/events", h.authenticated(h.Broadcast.ServeSSE))
	}
}

// authenticated resolves the credential cookie and hands the identity to
// next on the request context. Requests without one are answered here.
func (h *Handlers) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _, err := h.identity(w, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next(w, r.WithContext(session.ContextWithIdentity(r.Context(), identity)))
	}
}

// HandlePage answers the resolved page as JSON.
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	identity, _, err := h.identity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.Page.Query(r.Context(), dashboard.ResolveRequest{
		Identity: identity,
		URL:      r.URL,
		Locale:   RequestLocale(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleSubmit posts form values to the unit.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request, unitKey string) {
	identity, _, err := h.identity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, goerrors.New("invalid form body", goerrors.CategoryBadInput).WithTextCode("BAD_FORM"))
		return
	}
	var outcome dashboard.SubmitOutcome
	err = h.Submit.Execute(r.Context(), commands.SubmitUnitInput{
		Identity:  identity,
		UnitKey:   unitKey,
		Values:    r.PostForm,
		Locale:    RequestLocale(r),
		RequestID: r.Header.Get("X-Request-ID"),
		Outcome:   &outcome,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":    "submitted",
		"resource":  outcome.Event.Resource,
		"record_id": outcome.Event.RecordID,
	})
}

// HandleDelete removes a record through the unit.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request, unitKey, recordID string) {
	identity, _, err := h.identity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Delete.Execute(r.Context(), commands.DeleteRecordInput{
		Identity:  identity,
		UnitKey:   unitKey,
		RecordID:  recordID,
		RequestID: r.Header.Get("X-Request-ID"),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExport streams the unit's current table page as a PDF.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request, unitKey string) {
	identity, _, err := h.identity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.Export.Execute(r.Context(), commands.ExportTableInput{
		Identity: identity,
		UnitKey:  unitKey,
		Query:    r.URL.Query(),
		Locale:   RequestLocale(r),
		Writer:   &buf,
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+unitKey+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleRefresh forwards an externally observed record change. Only admins
// may announce changes.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	identity, _, err := h.identity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !identity.Admin() {
		h.fail(w, r, dashboard.ErrAccessDenied)
		return
	}
	var payload commands.NotifyRecordChangedInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Refresh.Execute(r.Context(), payload); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleLogout clears the credential cookie. It succeeds without a valid
// identity so stale cookies can always be removed.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	identity, store, _ := h.identity(w, r)
	if err := h.Logout.Execute(r.Context(), commands.LogoutInput{Identity: identity, Store: store}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type authRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message  string           `json:"message,omitempty"`
	Identity session.Identity `json:"identity"`
}

// HandleLogin exchanges JSON credentials for the credential cookie.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body authRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, r, goerrors.New("invalid json body", goerrors.CategoryBadInput).WithTextCode("BAD_JSON"))
		return
	}
	var outcome commands.AuthOutcome
	err := h.Login.Execute(r.Context(), commands.LoginInput{
		Email:    body.Email,
		Password: body.Password,
		Store:    h.store(w, r),
		Outcome:  &outcome,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: outcome.Message, Identity: outcome.Identity})
}

// HandleSignup registers an account and sets the credential cookie.
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var body authRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, r, goerrors.New("invalid json body", goerrors.CategoryBadInput).WithTextCode("BAD_JSON"))
		return
	}
	var outcome commands.AuthOutcome
	err := h.Signup.Execute(r.Context(), commands.SignupInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Store:    h.store(w, r),
		Outcome:  &outcome,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Message: outcome.Message, Identity: outcome.Identity})
}

// HandleForgotPassword relays a password reset request.
func (h *Handlers) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body authRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, r, goerrors.New("invalid json body", goerrors.CategoryBadInput).WithTextCode("BAD_JSON"))
		return
	}
	var message string
	if err := h.ForgotPassword.Execute(r.Context(), commands.ForgotPasswordInput{Email: body.Email, Message: &message}); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handlers) store(w http.ResponseWriter, r *http.Request) *session.CookieStore {
	return session.NewCookieStore(h.CookieName, r.Header.Get("Cookie"), func(c *http.Cookie) {
		http.SetCookie(w, c)
	})
}

func (h *Handlers) identity(w http.ResponseWriter, r *http.Request) (session.Identity, session.CredentialStore, error) {
	store := h.store(w, r)
	identity, err := session.NewReader(store).Identity(r.Context())
	return identity, store, err
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := dashboard.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger().LogAttrs(r.Context(), slog.LevelError, "dashboard request failed",
			append(goerrors.ToSlogAttributes(err), slog.String("path", r.URL.Path))...)
	}
	writeJSON(w, status, dashboard.ResponseFor(err))
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// RequestLocale picks the locale from the query string or Accept-Language.
func RequestLocale(r *http.Request) string {
	if locale := strings.TrimSpace(r.URL.Query().Get("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return ParseAcceptLanguage(r.Header.Get("Accept-Language"))
}

// ParseAcceptLanguage returns the first language tag in header.
func ParseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

