package dashboard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/table"
	"github.com/goliatone/go-agency-dashboard/pkg/activity"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

func fieldView(t *testing.T, data UnitData, name string) form.FieldView {
	t.Helper()
	view, ok := data["form"].(form.View)
	require.True(t, ok, "unit data has no form view: %#v", data)
	for _, field := range view.Fields {
		if field.Name == name {
			return field
		}
	}
	t.Fatalf("form has no field %s", name)
	return form.FieldView{}
}

func TestResolveCustomerDefaultsToProfileTab(t *testing.T) {
	_, client := newMockAPI(t)
	svc := newTestService(t, Options{API: client})
	customer := demoIdentity(session.RoleCustomer)

	page, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: customer,
		URL:      mustURL(t, "/dashboard"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/dashboard?tab=profile", page.Redirect)
	assert.Nil(t, page.Unit, "a redirect renders nothing")

	page, err = svc.Resolve(context.Background(), ResolveRequest{
		Identity: customer,
		URL:      mustURL(t, page.Redirect),
	})
	require.NoError(t, err)
	assert.Empty(t, page.Redirect)
	assert.Equal(t, "customer", page.Config.RoleKey)
	assert.Equal(t, "profile", page.Selection.Key)
	require.Len(t, page.Menu, 4)
	assert.True(t, page.Menu[0].Active)
	assert.Equal(t, "/dashboard?tab=service-requests", page.Menu[1].Href)

	assert.Equal(t, "Carla", fieldView(t, page.Unit, "firstName").Text)
	assert.Equal(t, "customer@agency.test", fieldView(t, page.Unit, "email").Text)
	view := page.Unit["form"].(form.View)
	assert.Equal(t, "/dashboard/units/profile/submit", view.Endpoint)
	assert.Equal(t, http.MethodPost, view.Method)
}

func TestResolveAccessDenied(t *testing.T) {
	telemetry := &recordingTelemetry{}
	svc := newTestService(t, Options{API: &stubAPI{}, Telemetry: telemetry})

	_, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: session.Identity{SubjectID: "x", Role: "guest"},
		URL:      mustURL(t, "/dashboard"),
	})
	require.True(t, errors.Is(err, ErrAccessDenied))
	assert.Equal(t, http.StatusForbidden, StatusFor(err))
	assert.Contains(t, telemetry.names(), "dashboard.access_denied")
}

func TestResolveOwnScopeListsOnlyViewerRecords(t *testing.T) {
	_, client := newMockAPI(t)
	svc := newTestService(t, Options{API: client})

	page, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleCustomer),
		URL:      mustURL(t, "/dashboard?tab=service-requests"),
	})
	require.NoError(t, err)
	require.Empty(t, page.UnitError)
	view, ok := page.Unit["table"].(table.View)
	require.True(t, ok)
	assert.Equal(t, table.StateReady, view.State)
	assert.Len(t, view.Rows, 2)
	for _, row := range view.Rows {
		assert.Empty(t, row.Actions, "own scope tables have no delete action")
	}
}

func TestResolveAdminTableRendersRowsAndActions(t *testing.T) {
	_, client := newMockAPI(t)
	svc := newTestService(t, Options{API: client})

	page, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleAdmin),
		URL:      mustURL(t, "/dashboard?tab=customers&sort=firstName&order=asc"),
	})
	require.NoError(t, err)
	view := page.Unit["table"].(table.View)
	require.Equal(t, table.StateReady, view.State)
	require.Len(t, view.Rows, 4)
	assert.Equal(t, "Carla", view.Rows[0].Cells[0].Text)
	require.Len(t, view.Rows[0].Actions, 1)
	assert.Equal(t, "/dashboard/units/customers/records/"+view.Rows[0].ID+"/delete", view.Rows[0].Actions[0].Href)

	headers := page.Unit["headers"].([]HeaderLink)
	require.NotEmpty(t, headers)
	assert.Equal(t, table.SortAsc, headers[0].Direction)
	assert.Contains(t, headers[0].URL, "order=desc")
	assert.NotNil(t, page.Unit["create"])
}

func TestResolveUnitFailureBecomesPageState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Database offline"}`))
	}))
	defer srv.Close()
	client, err := api.NewClient(api.Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	telemetry := &recordingTelemetry{}
	svc := newTestService(t, Options{API: client, Telemetry: telemetry})

	page, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleAdmin),
		URL:      mustURL(t, "/dashboard?tab=tasks&status=done"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Database offline", page.UnitError)
	retry, _ := page.Unit["retry_url"].(string)
	assert.Contains(t, retry, "tab=tasks")
	assert.Contains(t, retry, "status=done")
	assert.Contains(t, telemetry.names(), "dashboard.unit.render_error")
}

func TestResolveUnitAuthFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Token revoked"}`))
	}))
	defer srv.Close()
	client, err := api.NewClient(api.Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	svc := newTestService(t, Options{API: client})

	_, err = svc.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleAdmin),
		URL:      mustURL(t, "/dashboard?tab=customers"),
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsAuth(err))
}

func TestResolveLocalizesMenu(t *testing.T) {
	svc := newTestService(t, Options{API: &stubAPI{}})
	page, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleUser),
		URL:      mustURL(t, "/dashboard?tab=services"),
		Locale:   "es-MX",
	})
	require.NoError(t, err)
	require.Len(t, page.Menu, 3)
	assert.Equal(t, "Perfil", page.Menu[0].Label)

	translated := newTestService(t, Options{
		API:        &stubAPI{},
		Translator: keyTranslator{"dashboard.menu.user.profile": "Mi cuenta"},
	})
	page, err = translated.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleUser),
		URL:      mustURL(t, "/dashboard?tab=services"),
		Locale:   "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mi cuenta", page.Menu[0].Label)
	assert.Equal(t, "Servicios", page.Menu[1].Label)
}

func TestResolveCarriesRejectedForm(t *testing.T) {
	_, client := newMockAPI(t)
	svc := newTestService(t, Options{API: client})

	page, err := svc.Resolve(context.Background(), ResolveRequest{
		Identity: demoIdentity(session.RoleCustomer),
		URL:      mustURL(t, "/dashboard?tab=profile"),
		FormKey:  "profile",
		Form: &FormState{
			Values:  form.Values{"phone": "12ab"},
			Errors:  form.Errors{"phone": "Digits only"},
			Message: "Please correct the highlighted fields.",
		},
	})
	require.NoError(t, err)
	phone := fieldView(t, page.Unit, "phone")
	assert.Equal(t, "12ab", phone.Text)
	assert.Equal(t, "Digits only", phone.Error)
	assert.Equal(t, "Please correct the highlighted fields.", page.Unit["message"])
}

func TestSubmitRequiredPhoneBlocksWithoutNetworkCall(t *testing.T) {
	stub := &stubAPI{}
	svc := newTestService(t, Options{API: stub})

	outcome, err := svc.Submit(context.Background(), UnitRequest{
		Identity: demoIdentity(session.RoleUser),
		Key:      "contact",
		Values: url.Values{
			"name":          {"Pat"},
			"email":         {"pat@example.com"},
			"contactMethod": {"phone"},
			"phone":         {""},
			"message":       {"Please call me back soon"},
		},
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))
	assert.Equal(t, http.StatusBadRequest, StatusFor(err))
	assert.False(t, outcome.Result.Submitted)
	assert.Contains(t, outcome.Result.Errors, "phone")
	assert.Zero(t, stub.submitCount())
}

func TestSubmitExcludesHiddenFields(t *testing.T) {
	stub := &stubAPI{}
	svc := newTestService(t, Options{API: stub})

	_, err := svc.Submit(context.Background(), UnitRequest{
		Identity: demoIdentity(session.RoleUser),
		Key:      "contact",
		Values: url.Values{
			"name":          {"Pat"},
			"email":         {"pat@example.com"},
			"contactMethod": {"email"},
			"phone":         {"not digits"},
			"message":       {"Please email me a quote"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stub.submitCount())
	payload := stub.payloads[0]
	assert.NotContains(t, payload, "phone")
	assert.Equal(t, "Pat", payload["name"])
}

func TestSubmitCreatesRecordWithSessionOwner(t *testing.T) {
	backend, client := newMockAPI(t)
	refresh := &recordingRefreshHook{}
	capture := &activity.CaptureHook{}
	svc := newTestService(t, Options{
		API:            client,
		RefreshHook:    refresh,
		ActivityHooks:  activity.Hooks{capture},
		ActivityConfig: activity.Config{Enabled: true},
	})
	customer := demoIdentity(session.RoleCustomer)
	before := len(backend.Records(api.ResourceServiceRequests))

	ctx := ContextWithActivity(context.Background(), ActivityContext{TenantID: "agency", RequestID: "req-1"})
	outcome, err := svc.Submit(ctx, UnitRequest{
		Identity: customer,
		Key:      "new-request",
		Values: url.Values{
			"service":     {"svc-seo"},
			"description": {"Audit the new product pages"},
			"customer":    {"someone-else"},
		},
	})
	require.NoError(t, err)
	assert.True(t, outcome.Result.Submitted)
	assert.Equal(t, "Your request was submitted.", outcome.Result.Message)

	records := backend.Records(api.ResourceServiceRequests)
	require.Len(t, records, before+1)
	created := records[len(records)-1]
	assert.Equal(t, customer.SubjectID, created["customer"])
	assert.Equal(t, "medium", created["priority"])

	require.Len(t, refresh.events, 1)
	event := refresh.events[0]
	assert.Equal(t, "create", event.Reason)
	assert.Equal(t, api.ResourceServiceRequests, event.Resource)
	assert.Equal(t, created["_id"], event.RecordID)

	require.Len(t, capture.Events, 1)
	evt := capture.Events[0]
	assert.Equal(t, "dashboard.record.create", evt.Verb)
	assert.Equal(t, customer.SubjectID, evt.ActorID)
	assert.Equal(t, "agency", evt.TenantID)
	assert.Equal(t, activity.DefaultChannel, evt.Channel)
	assert.Equal(t, "req-1", evt.Metadata["request_id"])
	assert.Equal(t, "new-request", evt.Metadata["unit_key"])
}

func TestSubmitProfileUpdatesOwnRecord(t *testing.T) {
	backend, client := newMockAPI(t)
	refresh := &recordingRefreshHook{}
	svc := newTestService(t, Options{API: client, RefreshHook: refresh})
	customer := demoIdentity(session.RoleCustomer)

	outcome, err := svc.Submit(context.Background(), UnitRequest{
		Identity: customer,
		Key:      "profile",
		Values: url.Values{
			"firstName": {"Carla"},
			"lastName":  {"Castillo"},
			"email":     {"customer@agency.test"},
			"phone":     {"5550101010"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Profile updated.", outcome.Result.Message)
	require.Len(t, refresh.events, 1)
	assert.Equal(t, "update", refresh.events[0].Reason)
	assert.Equal(t, customer.SubjectID, refresh.events[0].RecordID)

	for _, rec := range backend.Records(api.ResourceCustomers) {
		if rec["_id"] == customer.SubjectID {
			assert.Equal(t, "Castillo", rec["lastName"])
			return
		}
	}
	t.Fatalf("customer record %s not found", customer.SubjectID)
}

func TestSubmitSurfacesServerMessage(t *testing.T) {
	stub := &stubAPI{submitFn: func(context.Context, string, string, map[string]any) (map[string]any, error) {
		return nil, goerrors.New("Email already registered", goerrors.CategoryExternal).
			WithMetadata(map[string]any{"server_message": true})
	}}
	refresh := &recordingRefreshHook{}
	svc := newTestService(t, Options{API: stub, RefreshHook: refresh})

	outcome, err := svc.Submit(context.Background(), UnitRequest{
		Identity: demoIdentity(session.RoleUser),
		Key:      "contact",
		Values: url.Values{
			"name": {"Pat"}, "email": {"pat@example.com"}, "contactMethod": {"email"},
			"message": {"Is anyone there at all?"},
		},
	})
	require.Error(t, err)
	assert.True(t, outcome.Result.Submitted)
	assert.Equal(t, "Email already registered", outcome.Result.Message)
	assert.Equal(t, "Email already registered", MessageFor(err))
	assert.Empty(t, refresh.events)
}

func TestDeleteRemovesRecordAndNotifies(t *testing.T) {
	backend, client := newMockAPI(t)
	refresh := &recordingRefreshHook{}
	telemetry := &recordingTelemetry{}
	svc := newTestService(t, Options{API: client, RefreshHook: refresh, Telemetry: telemetry})

	records := backend.Records(api.ResourceContactRequests)
	require.Len(t, records, 2)
	id := records[0]["_id"].(string)

	event, err := svc.Delete(context.Background(), UnitRequest{
		Identity: demoIdentity(session.RoleAdmin),
		Key:      "contact-requests",
		RecordID: id,
	})
	require.NoError(t, err)
	assert.Equal(t, RecordEvent{
		Resource:  api.ResourceContactRequests,
		RecordID:  id,
		UnitKey:   "contact-requests",
		Reason:    "delete",
		SubjectID: demoIdentity(session.RoleAdmin).SubjectID,
	}, event)
	assert.Len(t, backend.Records(api.ResourceContactRequests), 1)
	assert.Equal(t, []RecordEvent{event}, refresh.events)
	assert.Contains(t, telemetry.names(), "dashboard.record.delete")
}

func TestDeleteRejections(t *testing.T) {
	stub := &stubAPI{}
	svc := newTestService(t, Options{API: stub})

	_, err := svc.Delete(context.Background(), UnitRequest{Identity: demoIdentity(session.RoleCustomer), Key: "profile", RecordID: "1"})
	assert.True(t, errors.Is(err, ErrUnsupportedAction))

	_, err = svc.Delete(context.Background(), UnitRequest{Identity: demoIdentity(session.RoleCustomer), Key: "service-requests", RecordID: "1"})
	assert.True(t, errors.Is(err, ErrUnsupportedAction), "own scope tables are not deletable")

	_, err = svc.Delete(context.Background(), UnitRequest{Identity: demoIdentity(session.RoleAdmin), Key: "ghost", RecordID: "1"})
	assert.True(t, errors.Is(err, ErrUnknownEntry))
	assert.Equal(t, http.StatusNotFound, StatusFor(err))

	_, err = svc.Delete(context.Background(), UnitRequest{Identity: demoIdentity(session.RoleAdmin), Key: "tasks"})
	assert.Equal(t, http.StatusBadRequest, StatusFor(err))

	_, err = svc.Delete(context.Background(), UnitRequest{Identity: session.Identity{Role: "guest"}, Key: "tasks", RecordID: "1"})
	assert.True(t, errors.Is(err, ErrAccessDenied))
	assert.Empty(t, stub.deletes)
}

func TestExportWritesPDF(t *testing.T) {
	_, client := newMockAPI(t)
	svc := newTestService(t, Options{API: client})

	var buf bytes.Buffer
	err := svc.Export(context.Background(), UnitRequest{
		Identity: demoIdentity(session.RoleAdmin),
		Key:      "transactions",
		Query:    url.Values{"type": {"income"}},
	}, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	err = svc.Export(context.Background(), UnitRequest{Identity: demoIdentity(session.RoleAdmin), Key: "contact-requests"}, &buf)
	assert.True(t, errors.Is(err, ErrUnsupportedAction))
}

func TestNotifyRecordChanged(t *testing.T) {
	refresh := &recordingRefreshHook{}
	svc := newTestService(t, Options{API: &stubAPI{}, RefreshHook: refresh})

	require.Error(t, svc.NotifyRecordChanged(context.Background(), RecordEvent{Reason: "update"}))
	require.NoError(t, svc.NotifyRecordChanged(context.Background(), RecordEvent{Resource: "tasks", RecordID: "t1", Reason: "update"}))
	require.Len(t, refresh.events, 1)
	assert.Equal(t, "t1", refresh.events[0].RecordID)
}

func TestRefreshHookFailureDoesNotFailSubmit(t *testing.T) {
	refresh := &recordingRefreshHook{err: errors.New("socket closed")}
	telemetry := &recordingTelemetry{}
	svc := newTestService(t, Options{API: &stubAPI{}, RefreshHook: refresh, Telemetry: telemetry})

	_, err := svc.Submit(context.Background(), UnitRequest{
		Identity: demoIdentity(session.RoleUser),
		Key:      "contact",
		Values: url.Values{
			"name": {"Pat"}, "email": {"pat@example.com"}, "contactMethod": {"email"},
			"message": {"Hello from the tests"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, telemetry.names(), "dashboard.refresh_error")
}

func TestLogoutEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	svc := newTestService(t, Options{
		API:            &stubAPI{},
		ActivityHooks:  activity.Hooks{capture},
		ActivityConfig: activity.Config{Enabled: true, Channel: "audit"},
	})
	identity := demoIdentity(session.RoleCoworker)
	svc.Logout(context.Background(), identity)

	require.Len(t, capture.Events, 1)
	assert.Equal(t, "dashboard.session.logout", capture.Events[0].Verb)
	assert.Equal(t, identity.SubjectID, capture.Events[0].ObjectID)
	assert.Equal(t, "audit", capture.Events[0].Channel)
	assert.Equal(t, "coworker", capture.Events[0].Metadata["role"])
}

func TestActivityDisabledByDefault(t *testing.T) {
	capture := &activity.CaptureHook{}
	svc := newTestService(t, Options{API: &stubAPI{}, ActivityHooks: activity.Hooks{capture}})
	svc.Logout(context.Background(), demoIdentity(session.RoleAdmin))
	assert.Empty(t, capture.Events)
}

type keyTranslator map[string]string

func (k keyTranslator) Translate(_ context.Context, key, _ string, _ map[string]any) (string, error) {
	if value, ok := k[key]; ok {
		return value, nil
	}
	return "", errors.New("missing translation")
}

func TestLogoutForgetsViewerTableState(t *testing.T) {
	svc := newTestService(t, Options{API: &stubAPI{}})
	admin := demoIdentity(session.RoleAdmin)
	cfg, ok := svc.Configurations().ConfigFor(admin)
	require.True(t, ok)

	var tables []*resourceTableUnit
	for _, entry := range cfg.Entries {
		if unit, ok := entry.Unit.(*resourceTableUnit); ok {
			unit.loader(admin.SubjectID)
			unit.loader("someone-else")
			tables = append(tables, unit)
		}
	}
	require.NotEmpty(t, tables)

	svc.Logout(context.Background(), admin)
	for _, unit := range tables {
		assert.False(t, unit.loaders.Contains(admin.SubjectID))
		assert.True(t, unit.loaders.Contains("someone-else"))
	}
}
