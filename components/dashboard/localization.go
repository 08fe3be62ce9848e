package dashboard

import (
	"context"
	"strings"
)

// TranslationService translates menu labels and messages. Implementations may
// interpolate args; the dashboard only needs the resolved string.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

const defaultLocaleKey = "default"

// ResolveLocalizedValue picks the value for locale from a map keyed by
// language tags. Tags match case-insensitively and "_" is read as "-". A
// regional tag (es-mx) falls back to its language (es), then to the "default"
// key, then to fallback.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	byTag := make(map[string]string, len(values))
	for key, value := range values {
		if tag := normalizeLocale(key); tag != "" && value != "" {
			byTag[tag] = value
		}
	}
	tag := normalizeLocale(locale)
	for tag != "" {
		if value, ok := byTag[tag]; ok {
			return value
		}
		cut := strings.LastIndexByte(tag, '-')
		if cut <= 0 {
			break
		}
		tag = tag[:cut]
	}
	if value, ok := byTag[defaultLocaleKey]; ok {
		return value
	}
	return fallback
}

// LabelForLocale returns the menu label for locale, falling back to Label.
func (e MenuEntry) LabelForLocale(locale string) string {
	return ResolveLocalizedValue(e.LabelLocalized, locale, e.Label)
}

// menuLabelKey is the translation key tried before the static labels.
func menuLabelKey(role, entry string) string {
	return "dashboard.menu." + role + "." + entry
}

// menuLabel asks the translator for dashboard.menu.<role>.<entry> and falls
// back to the entry's static labels when it has nothing.
func menuLabel(ctx context.Context, svc TranslationService, role string, entry MenuEntry, locale string) string {
	static := entry.LabelForLocale(locale)
	if svc == nil {
		return static
	}
	translated, err := svc.Translate(ctx, menuLabelKey(role, entry.Key), locale, map[string]any{"label": static})
	if err != nil || translated == "" {
		return static
	}
	return translated
}

// normalizeLocaleMap drops empty labels and lowercases tags once, at build
// time.
func normalizeLocaleMap(values map[string]string) map[string]string {
	normalized := make(map[string]string, len(values))
	for key, value := range values {
		if tag := normalizeLocale(key); tag != "" && value != "" {
			normalized[tag] = value
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}
