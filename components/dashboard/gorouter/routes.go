package gorouter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	router "github.com/goliatone/go-router"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// FlashCookie carries a one-shot notification across a redirect.
const FlashCookie = "dashboard_flash"

// Routes is the part of a go-router router the dashboard mounts on.
// router.Router[T] satisfies it.
type Routes interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo
}

// Commands are the shared commands behind the mutating routes.
type Commands struct {
	Submit gocommand.Commander[commands.SubmitUnitInput]
	Delete gocommand.Commander[commands.DeleteRecordInput]
	Export gocommand.Commander[commands.ExportTableInput]
	Logout gocommand.Commander[commands.LogoutInput]

	// Login enables the sign in page at LoginPath. Signup and ForgotPassword
	// are mounted below it when set.
	Login          gocommand.Commander[commands.LoginInput]
	Signup         gocommand.Commander[commands.SignupInput]
	ForgotPassword gocommand.Commander[commands.ForgotPasswordInput]
}

// Options configures the dashboard routes.
type Options struct {
	Controller *dashboard.Controller
	Commands   Commands
	Broadcast  *dashboard.BroadcastHook
	BasePath   string
	LoginPath  string
	CookieName string
	Routes     RouteConfig
	Logger     *slog.Logger
}

// Config wires go-router with the dashboard controller, commands and hooks.
type Config[T any] struct {
	Router router.Router[T]
	Options
}

// RouteConfig customizes the paths, relative to BasePath.
type RouteConfig struct {
	HTML      string
	Config    string
	Submit    string
	Delete    string
	Export    string
	WebSocket string
	Logout    string
}

// Register mounts dashboard routes (HTML, JSON, form posts, WebSocket) on a
// go-router router under BasePath.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	opts := cfg.Options.withDefaults()
	if err := Mount(cfg.Router.Group(opts.BasePath), opts); err != nil {
		return err
	}
	return MountAuth(cfg.Router, opts)
}

// MountAuth registers the sign in routes on r at LoginPath. r is expected to
// be the root router. Nothing is mounted without a Login command or when
// LoginPath points at another site, leaving sign in to an external page.
func MountAuth(r Routes, opts Options) error {
	if r == nil {
		return errors.New("gorouter: routes are required")
	}
	if opts.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	opts = opts.withDefaults()
	if opts.Commands.Login == nil || !strings.HasPrefix(opts.LoginPath, "/") || strings.HasPrefix(opts.LoginPath, "//") {
		return nil
	}
	h := &handlers{opts: opts}
	r.Get(opts.LoginPath, wrap(h.loginPage))
	r.Post(opts.LoginPath, wrap(h.login))
	if opts.Commands.Signup != nil {
		r.Post(opts.LoginPath+"/signup", wrap(h.signup))
	}
	if opts.Commands.ForgotPassword != nil {
		r.Post(opts.LoginPath+"/forgot-password", wrap(h.forgotPassword))
	}
	return nil
}

// Mount registers the routes on r, which is expected to be scoped to the
// base path already.
func Mount(r Routes, opts Options) error {
	if r == nil {
		return errors.New("gorouter: routes are required")
	}
	if opts.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	opts = opts.withDefaults()
	h := &handlers{opts: opts}
	routes := opts.Routes

	r.Get(routes.HTML, wrap(h.page))
	r.Get(routes.Config, wrap(h.config))
	if opts.Commands.Submit != nil {
		r.Post(routes.Submit, wrap(h.submit))
	}
	if opts.Commands.Delete != nil {
		r.Post(routes.Delete, wrap(h.delete))
	}
	if opts.Commands.Export != nil {
		r.Get(routes.Export, wrap(h.export))
	}
	if opts.Commands.Logout != nil {
		r.Post(routes.Logout, wrap(h.logout))
	}
	if opts.Broadcast != nil {
		h.registerWebSocket(r, routes.WebSocket)
	}
	return nil
}

// requestContext is the subset of router.Context the handlers use.
type requestContext interface {
	Context() context.Context
	Header(key string) string
	Query(name string, defaultValue ...string) string
	Param(name string, defaultValue ...string) string
	Locals(key any, value ...any) any
	OriginalURL() string
	Body() []byte
	SetHeader(key, value string) router.Context
	Status(code int) router.Context
	Send(body []byte) error
	JSON(code int, v any) error
	Redirect(location string, status ...int) error
}

func wrap(fn func(requestContext) error) router.HandlerFunc {
	return func(ctx router.Context) error {
		return fn(ctx)
	}
}

type handlers struct {
	opts Options
}

func (h *handlers) page(ctx requestContext) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return h.toLogin(ctx)
	}
	return h.renderPage(ctx, dashboard.ResolveRequest{
		Identity: identity,
		URL:      requestURL(ctx),
		Locale:   inferLocale(ctx),
		Flash:    h.takeFlash(ctx),
	}, http.StatusOK)
}

func (h *handlers) renderPage(ctx requestContext, req dashboard.ResolveRequest, status int) error {
	var buf bytes.Buffer
	page, err := h.opts.Controller.RenderTemplate(ctx.Context(), req, &buf)
	switch {
	case err == nil:
	case dashboard.IsAuthError(err) || goerrors.IsAuth(err):
		return h.toLogin(ctx)
	case errors.Is(err, dashboard.ErrAccessDenied):
		buf.Reset()
		if rerr := h.opts.Controller.RenderRestricted(page, &buf); rerr != nil {
			return h.respondError(ctx, rerr)
		}
		return h.sendHTML(ctx, http.StatusForbidden, buf.Bytes())
	default:
		return h.respondError(ctx, err)
	}
	if page.Redirect != "" {
		return ctx.Redirect(page.Redirect, http.StatusFound)
	}
	return h.sendHTML(ctx, status, buf.Bytes())
}

func (h *handlers) config(ctx requestContext) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return h.respondError(ctx, err)
	}
	payload, err := h.opts.Controller.Payload(ctx.Context(), dashboard.ResolveRequest{
		Identity: identity,
		URL:      requestURL(ctx),
		Locale:   inferLocale(ctx),
	})
	if err != nil {
		return h.respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, payload)
}

func (h *handlers) submit(ctx requestContext) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return h.toLogin(ctx)
	}
	key := ctx.Param("key")
	values, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return h.respondError(ctx, goerrors.New("invalid form body", goerrors.CategoryBadInput).WithTextCode("BAD_FORM"))
	}
	var outcome dashboard.SubmitOutcome
	err = h.opts.Commands.Submit.Execute(ctx.Context(), commands.SubmitUnitInput{
		Identity:  identity,
		UnitKey:   key,
		Values:    values,
		Locale:    inferLocale(ctx),
		RequestID: ctx.Header("X-Request-ID"),
		Outcome:   &outcome,
	})
	switch {
	case err == nil:
		message := outcome.Result.Message
		if message == "" {
			message = "Saved successfully."
		}
		h.setFlash(ctx, message)
		return ctx.Redirect(h.tabURL(key), http.StatusSeeOther)
	case dashboard.IsAuthError(err) || goerrors.IsAuth(err):
		return h.toLogin(ctx)
	case errors.Is(err, dashboard.ErrAccessDenied), errors.Is(err, dashboard.ErrUnknownEntry):
		return h.respondError(ctx, err)
	}
	state := &dashboard.FormState{
		Values:  formValues(values),
		Errors:  outcome.Result.Errors,
		Message: outcome.Result.Message,
	}
	if state.Message == "" {
		state.Message = dashboard.MessageFor(err)
	}
	target, _ := url.Parse(h.tabURL(key))
	status := dashboard.StatusFor(err)
	if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
		status = http.StatusUnprocessableEntity
	}
	return h.renderPage(ctx, dashboard.ResolveRequest{
		Identity: identity,
		URL:      target,
		Locale:   inferLocale(ctx),
		Form:     state,
		FormKey:  key,
	}, status)
}

func (h *handlers) delete(ctx requestContext) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return h.toLogin(ctx)
	}
	key := ctx.Param("key")
	err = h.opts.Commands.Delete.Execute(ctx.Context(), commands.DeleteRecordInput{
		Identity:  identity,
		UnitKey:   key,
		RecordID:  ctx.Param("id"),
		RequestID: ctx.Header("X-Request-ID"),
	})
	switch {
	case err == nil:
		h.setFlash(ctx, "Record deleted.")
	case dashboard.IsAuthError(err) || goerrors.IsAuth(err):
		return h.toLogin(ctx)
	default:
		h.setFlash(ctx, dashboard.MessageFor(err))
	}
	return ctx.Redirect(h.tabURL(key), http.StatusSeeOther)
}

func (h *handlers) export(ctx requestContext) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return h.toLogin(ctx)
	}
	key := ctx.Param("key")
	var buf bytes.Buffer
	err = h.opts.Commands.Export.Execute(ctx.Context(), commands.ExportTableInput{
		Identity: identity,
		UnitKey:  key,
		Query:    requestURL(ctx).Query(),
		Locale:   inferLocale(ctx),
		Writer:   &buf,
	})
	if err != nil {
		if dashboard.IsAuthError(err) || goerrors.IsAuth(err) {
			return h.toLogin(ctx)
		}
		return h.respondError(ctx, err)
	}
	ctx.SetHeader("Content-Type", "application/pdf")
	ctx.SetHeader("Content-Disposition", `attachment; filename="`+key+`.pdf"`)
	return ctx.Send(buf.Bytes())
}

func (h *handlers) logout(ctx requestContext) error {
	identity, _ := h.identity(ctx)
	store := h.cookieStore(ctx)
	if err := h.opts.Commands.Logout.Execute(ctx.Context(), commands.LogoutInput{Identity: identity, Store: store}); err != nil {
		return h.respondError(ctx, err)
	}
	return ctx.Redirect(h.opts.LoginPath, http.StatusSeeOther)
}

func (h *handlers) loginPage(ctx requestContext) error {
	if _, err := h.identity(ctx); err == nil {
		return ctx.Redirect(h.opts.BasePath, http.StatusFound)
	}
	return h.renderLogin(ctx, http.StatusOK, dashboard.LoginView{Message: h.takeFlash(ctx)})
}

func (h *handlers) login(ctx requestContext) error {
	values, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return h.renderLogin(ctx, http.StatusBadRequest, dashboard.LoginView{Error: "The form could not be read."})
	}
	err = h.opts.Commands.Login.Execute(ctx.Context(), commands.LoginInput{
		Email:    values.Get("email"),
		Password: values.Get("password"),
		Store:    h.cookieStore(ctx),
	})
	if err != nil {
		return h.renderLogin(ctx, dashboard.StatusFor(err), dashboard.LoginView{Email: values.Get("email"), Error: authMessage(err)})
	}
	return ctx.Redirect(h.opts.BasePath, http.StatusSeeOther)
}

func (h *handlers) signup(ctx requestContext) error {
	values, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return h.renderLogin(ctx, http.StatusBadRequest, dashboard.LoginView{Error: "The form could not be read."})
	}
	err = h.opts.Commands.Signup.Execute(ctx.Context(), commands.SignupInput{
		Name:     values.Get("name"),
		Email:    values.Get("email"),
		Password: values.Get("password"),
		Store:    h.cookieStore(ctx),
	})
	if err != nil {
		return h.renderLogin(ctx, dashboard.StatusFor(err), dashboard.LoginView{Error: authMessage(err)})
	}
	return ctx.Redirect(h.opts.BasePath, http.StatusSeeOther)
}

func (h *handlers) forgotPassword(ctx requestContext) error {
	values, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return h.renderLogin(ctx, http.StatusBadRequest, dashboard.LoginView{Error: "The form could not be read."})
	}
	var message string
	err = h.opts.Commands.ForgotPassword.Execute(ctx.Context(), commands.ForgotPasswordInput{
		Email:   values.Get("email"),
		Message: &message,
	})
	if err != nil {
		return h.renderLogin(ctx, dashboard.StatusFor(err), dashboard.LoginView{Email: values.Get("email"), Error: authMessage(err)})
	}
	if message == "" {
		message = "Check your inbox for a reset link."
	}
	return h.renderLogin(ctx, http.StatusOK, dashboard.LoginView{Email: values.Get("email"), Message: message})
}

func (h *handlers) renderLogin(ctx requestContext, status int, view dashboard.LoginView) error {
	view.Action = h.opts.LoginPath
	var buf bytes.Buffer
	if err := h.opts.Controller.RenderLogin(view, &buf); err != nil {
		return h.respondError(ctx, err)
	}
	return h.sendHTML(ctx, status, buf.Bytes())
}

func authMessage(err error) string {
	if message := api.MessageFrom(err, ""); message != "" {
		return message
	}
	if goerrors.IsValidation(err) {
		return "Enter a valid email and a password of at least 6 characters."
	}
	return dashboard.MessageFor(err)
}

const upgradeIdentityKey = "identity"

// eventStream is the part of router.WebSocketContext the event stream uses.
type eventStream interface {
	Context() context.Context
	UpgradeData(key string) (any, bool)
	WriteJSON(v any) error
	Close() error
	CloseWithStatus(code int, reason string) error
}

func (h *handlers) registerWebSocket(r Routes, path string) {
	cfg := router.DefaultWebSocketConfig()
	cfg.OnPreUpgrade = func(ctx router.Context) (router.UpgradeData, error) {
		return h.upgradeIdentity(ctx)
	}
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		return h.streamEvents(ws)
	})
}

// upgradeIdentity refuses the upgrade unless the request carries a valid
// identity, which is handed to the stream as upgrade data.
func (h *handlers) upgradeIdentity(ctx requestContext) (router.UpgradeData, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	return router.UpgradeData{upgradeIdentityKey: identity}, nil
}

// streamEvents forwards the record events the viewer may observe.
func (h *handlers) streamEvents(ws eventStream) error {
	value, _ := ws.UpgradeData(upgradeIdentityKey)
	viewer, ok := value.(session.Identity)
	if !ok || viewer.SubjectID == "" {
		return ws.CloseWithStatus(websocket.ClosePolicyViolation, "authentication required")
	}
	events, cancel := h.opts.Broadcast.SubscribeAs(viewer)
	defer cancel()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := ws.WriteJSON(event); err != nil {
				return err
			}
		case <-ws.Context().Done():
			return ws.Close()
		}
	}
}

func (h *handlers) cookieStore(ctx requestContext) *session.CookieStore {
	return session.NewCookieStore(h.opts.CookieName, ctx.Header("Cookie"), func(c *http.Cookie) {
		ctx.SetHeader("Set-Cookie", c.String())
	})
}

func (h *handlers) identity(ctx requestContext) (session.Identity, error) {
	if identity, ok := ctx.Locals("identity").(session.Identity); ok {
		return identity, nil
	}
	return session.NewReader(h.cookieStore(ctx)).Identity(ctx.Context())
}

func (h *handlers) toLogin(ctx requestContext) error {
	return ctx.Redirect(h.opts.LoginPath, http.StatusFound)
}

func (h *handlers) tabURL(key string) string {
	query := url.Values{}
	query.Set(dashboard.TabParam, key)
	return h.opts.BasePath + "?" + query.Encode()
}

func (h *handlers) setFlash(ctx requestContext, message string) {
	ctx.SetHeader("Set-Cookie", (&http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}).String())
}

// takeFlash reads the flash cookie and expires it.
func (h *handlers) takeFlash(ctx requestContext) string {
	cookies, err := http.ParseCookie(ctx.Header("Cookie"))
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name != FlashCookie {
			continue
		}
		message, err := url.QueryUnescape(c.Value)
		if err != nil || message == "" {
			return ""
		}
		expired := session.ExpiredCookie(FlashCookie)
		expired.HttpOnly = true
		ctx.SetHeader("Set-Cookie", expired.String())
		return message
	}
	return ""
}

func (h *handlers) sendHTML(ctx requestContext, status int, body []byte) error {
	ctx.Status(status)
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Send(body)
}

func (h *handlers) respondError(ctx requestContext, err error) error {
	status := dashboard.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.opts.Logger.LogAttrs(ctx.Context(), slog.LevelError, "dashboard route failed",
			goerrors.ToSlogAttributes(err)...)
	}
	return ctx.JSON(status, dashboard.ResponseFor(err))
}

func requestURL(ctx requestContext) *url.URL {
	u, err := url.Parse(ctx.OriginalURL())
	if err != nil {
		return &url.URL{}
	}
	return u
}

func formValues(values url.Values) form.Values {
	out := form.Values{}
	for key, v := range values {
		if len(v) > 0 {
			out[key] = v[0]
		}
	}
	return out
}

func inferLocale(ctx requestContext) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return httpapi.ParseAcceptLanguage(ctx.Header("Accept-Language"))
}

func (opts Options) withDefaults() Options {
	if opts.BasePath == "" {
		opts.BasePath = dashboard.DefaultBasePath
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.CookieName == "" {
		opts.CookieName = session.DefaultCookieName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Routes = defaultRouteConfig(opts.Routes)
	return opts
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/"
	}
	if routes.Config == "" {
		routes.Config = "/_config"
	}
	if routes.Submit == "" {
		routes.Submit = "/units/:key/submit"
	}
	if routes.Delete == "" {
		routes.Delete = "/units/:key/records/:id/delete"
	}
	if routes.Export == "" {
		routes.Export = "/units/:key/export.pdf"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	if routes.Logout == "" {
		routes.Logout = "/logout"
	}
	return routes
}
