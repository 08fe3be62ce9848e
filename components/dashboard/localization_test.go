package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubTranslationService struct {
	value string
	err   error
	keys  []string
}

func (s *stubTranslationService) Translate(_ context.Context, key, _ string, _ map[string]any) (string, error) {
	s.keys = append(s.keys, key)
	return s.value, s.err
}

func TestResolveLocalizedValue(t *testing.T) {
	values := map[string]string{
		"en":    "Requests",
		"es":    "Solicitudes",
		"es-MX": "Pedidos",
	}
	if got := ResolveLocalizedValue(values, "es_mx", "fallback"); got != "Pedidos" {
		t.Fatalf("expected region-specific match, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "es-ar", "fallback"); got != "Solicitudes" {
		t.Fatalf("expected base locale fallback, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "fr", "Requests"); got != "Requests" {
		t.Fatalf("expected fallback when locale missing, got %q", got)
	}
	if got := ResolveLocalizedValue(nil, "es", "Requests"); got != "Requests" {
		t.Fatalf("expected fallback when no localized map, got %q", got)
	}
	if got := ResolveLocalizedValue(map[string]string{"default": "Inicio"}, "de", "Home"); got != "Inicio" {
		t.Fatalf("expected default key, got %q", got)
	}
}

func TestMenuLabelPrefersTranslator(t *testing.T) {
	entry := MenuEntry{Key: "tasks", Label: "Tasks", LabelLocalized: map[string]string{"es": "Tareas"}}

	svc := &stubTranslationService{value: "Pendientes"}
	assert.Equal(t, "Pendientes", menuLabel(context.Background(), svc, "coworker", entry, "es"))
	assert.Equal(t, []string{"dashboard.menu.coworker.tasks"}, svc.keys)

	failing := &stubTranslationService{err: errors.New("catalog offline")}
	assert.Equal(t, "Tareas", menuLabel(context.Background(), failing, "coworker", entry, "es"))
	assert.Equal(t, "Tasks", menuLabel(context.Background(), nil, "coworker", entry, "en"))
}

func TestMenuEntryLabelForLocale(t *testing.T) {
	entry := MenuEntry{
		Label:          "Customers",
		LabelLocalized: normalizeLocaleMap(map[string]string{"ES": "Clientes", "pt_BR": "Clientes BR", "fr": ""}),
	}
	assert.NotContains(t, entry.LabelLocalized, "fr")
	cases := map[string]string{
		"es":    "Clientes",
		"es-MX": "Clientes",
		"pt-br": "Clientes BR",
		"fr":    "Customers",
		"":      "Customers",
	}
	for locale, want := range cases {
		if got := entry.LabelForLocale(locale); got != want {
			t.Fatalf("locale %q: expected %q, got %q", locale, want, got)
		}
	}
	assert.Nil(t, normalizeLocaleMap(map[string]string{"es": ""}))
}
