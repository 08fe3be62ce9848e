package form

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

type recordingSubmitter struct {
	calls    int
	method   string
	endpoint string
	payload  map[string]any
	response map[string]any
	err      error
}

func (r *recordingSubmitter) Submit(_ context.Context, method, endpoint string, payload map[string]any) (map[string]any, error) {
	r.calls++
	r.method, r.endpoint, r.payload = method, endpoint, payload
	return r.response, r.err
}

func contactForm(sub Submitter) *Form {
	return &Form{
		Endpoint:  "/contact-requests",
		Submitter: sub,
		Fields: []Field{
			{Name: "name", Rules: []Rule{{Type: RuleRequired}}},
			{Name: "phone", Kind: KindPhone, Rules: []Rule{
				{Type: RuleLength, Value: 10},
				{Type: RulePattern, Value: `[0-9]+`, Message: "Digits only"},
				{Type: RuleRequired},
			}},
			{Name: "contact_by", Kind: KindSelect, Options: []Option{{Value: "email"}, {Value: "phone"}}},
			{Name: "email", Kind: KindEmail, DependsOn: &Dependency{Field: "contact_by", Equals: []string{"email"}},
				Rules: []Rule{{Type: RuleRequired}, {Type: RuleEmail}}},
		},
	}
}

func TestSubmitBlocksInvalidWithoutNetworkCall(t *testing.T) {
	sub := &recordingSubmitter{}
	f := contactForm(sub)

	result, err := f.Submit(context.Background(), Values{"name": "Ada", "phone": ""})
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))
	assert.Equal(t, 0, sub.calls)
	assert.False(t, result.Submitted)
	assert.Equal(t, "Phone is required", result.Errors["phone"])
}

func TestRulePrecedenceKeepsFirstFailure(t *testing.T) {
	f := contactForm(nil)
	errs := f.Validate(Values{"name": "Ada", "phone": "12ab"})
	assert.Equal(t, "Digits only", errs["phone"])

	errs = f.Validate(Values{"name": "Ada", "phone": "123"})
	assert.Equal(t, "Phone must be exactly 10 characters", errs["phone"])

	login := &Form{Fields: []Field{{Name: "email", Rules: []Rule{
		{Type: RuleEmail},
		{Type: RuleMinLength, Value: 8},
		{Type: RuleRequired},
	}}}}
	tests := []struct {
		value string
		want  string
	}{
		{"", "Email is required"},
		{"a@b", "Email must be at least 8 characters"},
		{"not-an-address", "Email must be a valid email address"},
		{"ada@example.com", ""},
	}
	for _, tt := range tests {
		errs := login.Validate(Values{"email": tt.value})
		if got := errs["email"]; got != tt.want {
			t.Fatalf("Validate(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestHiddenDependentFieldIsSkipped(t *testing.T) {
	sub := &recordingSubmitter{response: map[string]any{"_id": "1"}}
	f := contactForm(sub)

	_, err := f.Submit(context.Background(), Values{"name": "Ada", "phone": "0123456789", "contact_by": "phone", "email": "stale"})
	require.NoError(t, err)
	assert.Equal(t, 1, sub.calls)
	assert.NotContains(t, sub.payload, "email")
	assert.Equal(t, "POST", sub.method)

	errs := f.Validate(Values{"name": "Ada", "phone": "0123456789", "contact_by": "email"})
	assert.Equal(t, "Email is required", errs["email"])
}

func TestRequiredCheckboxMustBeChecked(t *testing.T) {
	f := &Form{Fields: []Field{{Name: "terms", Kind: KindCheckbox, Rules: []Rule{{Type: RuleRequired}}}}}
	assert.True(t, f.Validate(f.ParseValues(url.Values{})).Has())
	assert.False(t, f.Validate(f.ParseValues(url.Values{"terms": {"on"}})).Has())
}

func TestRequiredAcceptsZeroNumber(t *testing.T) {
	f := &Form{Fields: []Field{{Name: "budget", Kind: KindNumber, Rules: []Rule{{Type: RuleRequired}}}}}
	values := f.ParseValues(url.Values{"budget": {"0"}})
	assert.Equal(t, 0.0, values["budget"])
	assert.False(t, f.Validate(values).Has())
}

func TestMergeAppliesDefaultsThenInitial(t *testing.T) {
	f := &Form{
		Fields:  []Field{{Name: "status", Default: "pending"}, {Name: "service"}},
		Initial: Values{"service": "seo"},
	}
	merged := f.Merge(Values{"extra": "ignored"})
	assert.Equal(t, Values{"status": "pending", "service": "seo"}, merged)
}

func TestSubmitRoundTripAgainstBackend(t *testing.T) {
	backend := api.NewMockBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	var got map[string]any
	f := &Form{
		Endpoint:  "/" + api.ResourceTasks,
		Submitter: client,
		Fields: []Field{
			{Name: "title", Rules: []Rule{{Type: RuleRequired}}},
			{Name: "status", Kind: KindSelect, Default: "todo"},
		},
		OnSuccess: func(resp map[string]any) { got = resp },
	}
	result, err := f.Submit(context.Background(), Values{"title": "Write copy"})
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	require.NotNil(t, got)
	assert.NotEmpty(t, got["_id"])

	list, err := client.List(context.Background(), api.ResourceTasks, api.ListQuery{})
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "Write copy", list.Records[0]["title"])
	assert.Equal(t, "todo", list.Records[0]["status"])
}

func TestSubmitErrorSurfacesServerMessage(t *testing.T) {
	backend := api.NewMockBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	var message string
	f := &Form{
		Endpoint:  "/" + api.ResourceContactRequests,
		Submitter: client,
		Fields: []Field{
			{Name: "name"}, {Name: "email"}, {Name: "message"},
		},
		OnError: func(msg string) { message = msg },
	}
	result, err := f.Submit(context.Background(), Values{"name": "Ada", "email": "ada@example.com", "message": "hi"})
	require.Error(t, err)
	assert.Equal(t, "message must be at least 10 characters", message)
	assert.Equal(t, message, result.Message)
}

func TestSubmitErrorFallsBackToGenericMessage(t *testing.T) {
	var message string
	f := &Form{
		Endpoint:  "/x",
		Submitter: &recordingSubmitter{err: assert.AnError},
		OnError:   func(msg string) { message = msg },
	}
	_, err := f.Submit(context.Background(), Values{})
	require.Error(t, err)
	assert.Equal(t, GenericErrorMessage, message)
}

func TestViewMarksHiddenAndErrors(t *testing.T) {
	f := contactForm(nil)
	values := Values{"contact_by": "phone"}
	view := f.View(values, f.Validate(values))
	assert.False(t, view.Valid)
	byName := map[string]FieldView{}
	for _, fv := range view.Fields {
		byName[fv.Name] = fv
	}
	assert.True(t, byName["email"].Hidden)
	assert.True(t, byName["phone"].Required)
	assert.Equal(t, "Name is required", byName["name"].Error)
}
