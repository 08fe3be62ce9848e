package dashboard

import (
	"bytes"
	"context"
	"errors"
	"io"
)

const (
	defaultPageTemplate       = "dashboard"
	defaultRestrictedTemplate = "restricted"
	defaultLoginTemplate      = "login"
	defaultPageTitle          = "Agency Dashboard"
)

// Renderer describes the template renderer contract needed by the controller.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// PageResolver resolves a dashboard page. *Service satisfies it.
type PageResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Page, error)
}

// ControllerOptions configures the HTML controller.
type ControllerOptions struct {
	Service            PageResolver
	Renderer           Renderer
	Template           string
	RestrictedTemplate string
	LoginTemplate      string
	Title              string
	BasePath           string
}

// Controller renders resolved pages through templates.
type Controller struct {
	opts ControllerOptions
}

// NewController applies template defaults.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = defaultPageTemplate
	}
	if opts.RestrictedTemplate == "" {
		opts.RestrictedTemplate = defaultRestrictedTemplate
	}
	if opts.LoginTemplate == "" {
		opts.LoginTemplate = defaultLoginTemplate
	}
	if opts.Title == "" {
		opts.Title = defaultPageTitle
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	return &Controller{opts: opts}
}

var errMissingRenderer = errors.New("dashboard: renderer not configured")

// Resolve resolves the page without rendering it.
func (c *Controller) Resolve(ctx context.Context, req ResolveRequest) (Page, error) {
	if c.opts.Service == nil {
		return Page{}, errors.New("dashboard: controller has no service")
	}
	return c.opts.Service.Resolve(ctx, req)
}

// RenderTemplate resolves and renders the page into out. Nothing is written
// when the page is a redirect or resolution fails.
func (c *Controller) RenderTemplate(ctx context.Context, req ResolveRequest, out io.Writer) (Page, error) {
	page, err := c.Resolve(ctx, req)
	if err != nil || page.Redirect != "" {
		return page, err
	}
	if c.opts.Renderer == nil {
		return page, errMissingRenderer
	}
	unitHTML, err := c.renderUnit(page)
	if err != nil {
		return page, err
	}
	payload := c.pagePayload(page)
	payload["unit_html"] = unitHTML
	if _, err := c.opts.Renderer.Render(c.opts.Template, payload, out); err != nil {
		return page, err
	}
	return page, nil
}

func (c *Controller) renderUnit(page Page) (string, error) {
	if page.Selection.Key == "" || page.UnitError != "" {
		return "", nil
	}
	var buf bytes.Buffer
	_, err := c.opts.Renderer.Render("units/"+page.Selection.Entry.Kind, map[string]any{
		"entry": page.Selection.Entry,
		"unit":  page.Unit,
	}, &buf)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Payload returns the page as a JSON-friendly map.
func (c *Controller) Payload(ctx context.Context, req ResolveRequest) (map[string]any, error) {
	page, err := c.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.pagePayload(page), nil
}

func (c *Controller) pagePayload(page Page) map[string]any {
	payload := map[string]any{
		"title":     c.opts.Title,
		"base_path": c.opts.BasePath,
		"viewer":    page.Identity,
		"menu":      page.Menu,
		"selection": page.Selection,
		"unit":      page.Unit,
	}
	if page.Config != nil {
		payload["role"] = page.Config.RoleKey
	}
	if page.UnitError != "" {
		payload["unit_error"] = page.UnitError
	}
	if page.Flash != "" {
		payload["flash"] = page.Flash
	}
	if page.Redirect != "" {
		payload["redirect"] = page.Redirect
	}
	return payload
}

// LoginView is the state of the sign in page.
type LoginView struct {
	// Action is where the sign in form posts; signup and password reset post
	// below it.
	Action  string
	Email   string
	Message string
	Error   string
}

// RenderLogin renders the sign in page.
func (c *Controller) RenderLogin(view LoginView, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errMissingRenderer
	}
	_, err := c.opts.Renderer.Render(c.opts.LoginTemplate, map[string]any{
		"title":   c.opts.Title,
		"action":  view.Action,
		"email":   view.Email,
		"message": view.Message,
		"error":   view.Error,
	}, out)
	return err
}

// RenderRestricted renders the access-restricted page.
func (c *Controller) RenderRestricted(page Page, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errMissingRenderer
	}
	_, err := c.opts.Renderer.Render(c.opts.RestrictedTemplate, map[string]any{
		"title":     c.opts.Title,
		"base_path": c.opts.BasePath,
		"viewer":    page.Identity,
		"message":   "You do not have access to this dashboard.",
	}, out)
	return err
}
