package dashboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

type stubResolver struct {
	page Page
	err  error
	reqs []ResolveRequest
}

func (s *stubResolver) Resolve(_ context.Context, req ResolveRequest) (Page, error) {
	s.reqs = append(s.reqs, req)
	return s.page, s.err
}

type renderCall struct {
	template string
	payload  map[string]any
}

type stubRenderer struct {
	calls []renderCall
	err   error
}

func (r *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	payload, _ := data.(map[string]any)
	r.calls = append(r.calls, renderCall{template: name, payload: payload})
	if r.err != nil {
		return "", r.err
	}
	html := "<" + name + ">"
	if len(out) > 0 && out[0] != nil {
		if _, err := io.WriteString(out[0], html); err != nil {
			return "", err
		}
	}
	return html, nil
}

func resolvedPage() Page {
	entry := MenuEntry{Key: "tasks", Label: "Tasks", Kind: KindResourceTable}
	return Page{
		Identity:  session.Identity{SubjectID: "u1", DisplayName: "Cole", Role: "coworker"},
		Config:    &DashboardConfiguration{RoleKey: "coworker", Entries: []MenuEntry{entry}},
		Selection: ActiveSelection{Key: "tasks", Entry: entry},
		Menu:      []MenuItem{{Key: "tasks", Label: "Tasks", Href: "/dashboard?tab=tasks", Active: true}},
		Unit:      UnitData{"title": "My Tasks"},
		Flash:     "Saved.",
	}
}

func TestControllerRenderTemplateComposesUnit(t *testing.T) {
	renderer := &stubRenderer{}
	controller := NewController(ControllerOptions{Service: &stubResolver{page: resolvedPage()}, Renderer: renderer})

	var buf bytes.Buffer
	page, err := controller.RenderTemplate(context.Background(), ResolveRequest{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "tasks", page.Selection.Key)

	require.Len(t, renderer.calls, 2)
	assert.Equal(t, "units/resource_table", renderer.calls[0].template)
	assert.Equal(t, UnitData{"title": "My Tasks"}, renderer.calls[0].payload["unit"])

	main := renderer.calls[1]
	assert.Equal(t, defaultPageTemplate, main.template)
	assert.Equal(t, "<units/resource_table>", main.payload["unit_html"])
	assert.Equal(t, defaultPageTitle, main.payload["title"])
	assert.Equal(t, DefaultBasePath, main.payload["base_path"])
	assert.Equal(t, "coworker", main.payload["role"])
	assert.Equal(t, "Saved.", main.payload["flash"])
	assert.Equal(t, "<dashboard>", buf.String())
}

func TestControllerSkipsUnitTemplateOnUnitError(t *testing.T) {
	page := resolvedPage()
	page.UnitError = "Database offline"
	renderer := &stubRenderer{}
	controller := NewController(ControllerOptions{Service: &stubResolver{page: page}, Renderer: renderer, Template: "custom"})

	_, err := controller.RenderTemplate(context.Background(), ResolveRequest{}, io.Discard)
	require.NoError(t, err)
	require.Len(t, renderer.calls, 1)
	assert.Equal(t, "custom", renderer.calls[0].template)
	assert.Equal(t, "Database offline", renderer.calls[0].payload["unit_error"])
	assert.Equal(t, "", renderer.calls[0].payload["unit_html"])
}

func TestControllerWritesNothingOnRedirectOrError(t *testing.T) {
	renderer := &stubRenderer{}
	redirect := NewController(ControllerOptions{
		Service:  &stubResolver{page: Page{Redirect: "/dashboard?tab=profile"}},
		Renderer: renderer,
	})
	var buf bytes.Buffer
	page, err := redirect.RenderTemplate(context.Background(), ResolveRequest{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard?tab=profile", page.Redirect)
	assert.Zero(t, buf.Len())

	denied := NewController(ControllerOptions{Service: &stubResolver{err: ErrAccessDenied}, Renderer: renderer})
	_, err = denied.RenderTemplate(context.Background(), ResolveRequest{}, &buf)
	assert.True(t, errors.Is(err, ErrAccessDenied))
	assert.Zero(t, buf.Len())
	assert.Empty(t, renderer.calls)
}

func TestControllerRequiresRenderer(t *testing.T) {
	controller := NewController(ControllerOptions{Service: &stubResolver{page: resolvedPage()}})
	_, err := controller.RenderTemplate(context.Background(), ResolveRequest{}, io.Discard)
	require.ErrorIs(t, err, errMissingRenderer)
	require.ErrorIs(t, controller.RenderRestricted(Page{}, io.Discard), errMissingRenderer)
}

func TestControllerPayloadAndRestricted(t *testing.T) {
	renderer := &stubRenderer{}
	resolver := &stubResolver{page: resolvedPage()}
	controller := NewController(ControllerOptions{Service: resolver, Renderer: renderer, Title: "Studio", BasePath: "/app"})

	payload, err := controller.Payload(context.Background(), ResolveRequest{Locale: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Studio", payload["title"])
	assert.Equal(t, "/app", payload["base_path"])
	assert.NotContains(t, payload, "unit_html")
	assert.Equal(t, "es", resolver.reqs[0].Locale)

	var buf bytes.Buffer
	require.NoError(t, controller.RenderRestricted(Page{Identity: session.Identity{Role: "guest"}}, &buf))
	assert.Equal(t, "<"+defaultRestrictedTemplate+">", buf.String())
	assert.NotEmpty(t, renderer.calls[0].payload["message"])
}
