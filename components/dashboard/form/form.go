package form

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/ettle/strcase"
	"github.com/go-playground/validator/v10"
	goerrors "github.com/goliatone/go-errors"
)

// Kind is the input kind of a field.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindPhone    Kind = "tel"
	KindNumber   Kind = "number"
	KindTextarea Kind = "textarea"
	KindSelect   Kind = "select"
	KindDate     Kind = "date"
	KindCheckbox Kind = "checkbox"
	KindPassword Kind = "password"
	KindHidden   Kind = "hidden"
)

// RuleType names a validation rule.
type RuleType string

const (
	RuleRequired  RuleType = "required"
	RulePattern   RuleType = "pattern"
	RuleEmail     RuleType = "email"
	RuleMinLength RuleType = "minLength"
	RuleMaxLength RuleType = "maxLength"
	RuleLength    RuleType = "length"
)

// Rule is a single validation rule. Value carries the pattern or the length.
type Rule struct {
	Type    RuleType `json:"type" yaml:"type"`
	Value   any      `json:"value,omitempty" yaml:"value,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is a select choice.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Dependency makes a field visible only when another field's value matches.
type Dependency struct {
	Field    string         `json:"field" yaml:"field"`
	Equals   []string       `json:"equals,omitempty" yaml:"equals,omitempty"`
	NotEmpty bool           `json:"not_empty,omitempty" yaml:"not_empty,omitempty"`
	Func     func(any) bool `json:"-" yaml:"-"`
}

// Field describes one form input.
type Field struct {
	Name        string      `json:"name" yaml:"name"`
	Label       string      `json:"label,omitempty" yaml:"label,omitempty"`
	Kind        Kind        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Options     []Option    `json:"options,omitempty" yaml:"options,omitempty"`
	Rules       []Rule      `json:"rules,omitempty" yaml:"rules,omitempty"`
	Default     any         `json:"default,omitempty" yaml:"default,omitempty"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	DependsOn   *Dependency `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Values are the current field values keyed by name.
type Values map[string]any

// Errors maps a field name to its first failing rule message.
type Errors map[string]string

// Has reports whether any field has an error.
func (e Errors) Has() bool { return len(e) > 0 }

var (
	validate     = validator.New()
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// Validate applies each visible field's rules in precedence order
// (required, then pattern, then length) and keeps the first failure.
func (f *Form) Validate(values Values) Errors {
	errs := Errors{}
	for _, field := range f.Fields {
		if !f.Visible(field, values) {
			continue
		}
		if msg, failed := checkField(field, values[field.Name]); failed {
			errs[field.Name] = msg
		}
	}
	return errs
}

func checkField(field Field, value any) (string, bool) {
	rules := slices.Clone(field.Rules)
	slices.SortStableFunc(rules, func(a, b Rule) int {
		return rulePrecedence(a.Type) - rulePrecedence(b.Type)
	})
	blank := isBlank(value)
	for _, rule := range rules {
		if rule.Type != RuleRequired && blank {
			continue
		}
		if ok := checkRule(rule, value); !ok {
			return ruleMessage(field, rule), true
		}
	}
	return "", false
}

func rulePrecedence(t RuleType) int {
	switch t {
	case RuleRequired:
		return 0
	case RulePattern:
		return 1
	case RuleEmail:
		return 3
	default:
		return 2
	}
}

func checkRule(rule Rule, value any) bool {
	switch rule.Type {
	case RuleRequired:
		if b, ok := value.(bool); ok {
			return b
		}
		return !isBlank(value)
	case RulePattern:
		re, err := compilePattern(fmt.Sprint(rule.Value))
		if err != nil {
			return false
		}
		return re.MatchString(textValue(value))
	case RuleEmail:
		return validate.Var(textValue(value), "email") == nil
	case RuleMinLength:
		return validate.Var(textValue(value), fmt.Sprintf("min=%d", intValue(rule.Value))) == nil
	case RuleMaxLength:
		return validate.Var(textValue(value), fmt.Sprintf("max=%d", intValue(rule.Value))) == nil
	case RuleLength:
		return validate.Var(textValue(value), fmt.Sprintf("len=%d", intValue(rule.Value))) == nil
	default:
		return true
	}
}

// compilePattern anchors the pattern like an HTML pattern attribute.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	patternCache[pattern] = re
	return re, nil
}

func ruleMessage(field Field, rule Rule) string {
	if rule.Message != "" {
		return rule.Message
	}
	label := fieldLabel(field)
	switch rule.Type {
	case RuleRequired:
		return label + " is required"
	case RulePattern:
		return label + " has an invalid format"
	case RuleEmail:
		return label + " must be a valid email address"
	case RuleMinLength:
		return fmt.Sprintf("%s must be at least %d characters", label, intValue(rule.Value))
	case RuleMaxLength:
		return fmt.Sprintf("%s must be at most %d characters", label, intValue(rule.Value))
	case RuleLength:
		return fmt.Sprintf("%s must be exactly %d characters", label, intValue(rule.Value))
	}
	return label + " is invalid"
}

func fieldLabel(field Field) string {
	if field.Label != "" {
		return field.Label
	}
	return strcase.ToCase(field.Name, strcase.TitleCase, ' ')
}

// Visible evaluates the field's dependency. A field depending on a hidden
// field is hidden as well.
func (f *Form) Visible(field Field, values Values) bool {
	return f.visible(field, values, map[string]bool{})
}

func (f *Form) visible(field Field, values Values, seen map[string]bool) bool {
	dep := field.DependsOn
	if dep == nil || dep.Field == "" {
		return true
	}
	if seen[field.Name] {
		return false
	}
	seen[field.Name] = true
	if parent, ok := f.field(dep.Field); ok && !f.visible(parent, values, seen) {
		return false
	}
	value := values[dep.Field]
	switch {
	case dep.Func != nil:
		return dep.Func(value)
	case len(dep.Equals) > 0:
		return slices.Contains(dep.Equals, textValue(value))
	default:
		return !isBlank(value)
	}
}

func (f *Form) field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Merge overlays input on the initial values and field defaults.
func (f *Form) Merge(input Values) Values {
	out := Values{}
	for _, field := range f.Fields {
		if field.Default != nil {
			out[field.Name] = field.Default
		}
		if v, ok := f.Initial[field.Name]; ok {
			out[field.Name] = v
		}
		if v, ok := input[field.Name]; ok {
			out[field.Name] = v
		}
	}
	return out
}

// Payload keeps only the visible declared fields.
func (f *Form) Payload(values Values) map[string]any {
	payload := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		if !f.Visible(field, values) {
			continue
		}
		if v, ok := values[field.Name]; ok {
			payload[field.Name] = v
		}
	}
	return payload
}

// ValidationError converts errs to a go-errors validation error in field order.
func (f *Form) ValidationError(errs Errors) error {
	if !errs.Has() {
		return nil
	}
	fieldErrors := make([]goerrors.FieldError, 0, len(errs))
	for _, field := range f.Fields {
		if msg, ok := errs[field.Name]; ok {
			fieldErrors = append(fieldErrors, goerrors.FieldError{Field: field.Name, Message: msg})
		}
	}
	return goerrors.NewValidation("form: validation failed", fieldErrors...).
		WithTextCode("FORM_INVALID")
}

// FieldView is a renderable field.
type FieldView struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"kind"`
	Options     []Option `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Value       any      `json:"value,omitempty"`
	Text        string   `json:"text"`
	Required    bool     `json:"required"`
	Hidden      bool     `json:"hidden"`
	Error       string   `json:"error,omitempty"`
}

// View is a renderable form.
type View struct {
	Endpoint string      `json:"endpoint"`
	Method   string      `json:"method"`
	Fields   []FieldView `json:"fields"`
	Valid    bool        `json:"valid"`
}

// View builds the field models for values and errs.
func (f *Form) View(values Values, errs Errors) View {
	view := View{Endpoint: f.Endpoint, Method: f.method(), Valid: !errs.Has()}
	for _, field := range f.Fields {
		kind := field.Kind
		if kind == "" {
			kind = KindText
		}
		value := values[field.Name]
		view.Fields = append(view.Fields, FieldView{
			Name:        field.Name,
			Label:       fieldLabel(field),
			Kind:        kind,
			Options:     field.Options,
			Placeholder: field.Placeholder,
			Value:       value,
			Text:        textValue(value),
			Required:    hasRule(field, RuleRequired),
			Hidden:      !f.Visible(field, values),
			Error:       errs[field.Name],
		})
	}
	return view
}

func hasRule(field Field, t RuleType) bool {
	for _, rule := range field.Rules {
		if rule.Type == t {
			return true
		}
	}
	return false
}

// ParseValues coerces posted form values by field kind. Unknown keys are
// dropped.
func (f *Form) ParseValues(posted url.Values) Values {
	out := Values{}
	for _, field := range f.Fields {
		raw, ok := posted[field.Name]
		if !ok {
			if field.Kind == KindCheckbox {
				out[field.Name] = false
			}
			continue
		}
		text := ""
		if len(raw) > 0 {
			text = strings.TrimSpace(raw[len(raw)-1])
		}
		switch field.Kind {
		case KindNumber:
			if text == "" {
				out[field.Name] = nil
			} else if n, err := strconv.ParseFloat(text, 64); err == nil {
				out[field.Name] = n
			} else {
				out[field.Name] = text
			}
		case KindCheckbox:
			out[field.Name] = text == "on" || text == "true" || text == "1"
		default:
			out[field.Name] = text
		}
	}
	return out
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func textValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func intValue(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
