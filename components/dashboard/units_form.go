package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/table"
)

// subjectPlaceholder in an endpoint is replaced with the viewer's id.
const subjectPlaceholder = "{id}"

type prefetchConfig struct {
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
}

type formUnitConfig struct {
	Title          string          `json:"title,omitempty" yaml:"title,omitempty"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	Resource       string          `json:"resource,omitempty" yaml:"resource,omitempty"`
	Endpoint       string          `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method         string          `json:"method,omitempty" yaml:"method,omitempty"`
	SubmitLabel    string          `json:"submit_label,omitempty" yaml:"submit_label,omitempty"`
	SuccessMessage string          `json:"success_message,omitempty" yaml:"success_message,omitempty"`
	Fields         []form.Field    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Prefetch       *prefetchConfig `json:"prefetch,omitempty" yaml:"prefetch,omitempty"`
	// OwnerField is filled with the viewer's id on submit.
	OwnerField string `json:"owner_field,omitempty" yaml:"owner_field,omitempty"`
}

// formUnit renders a standalone form such as a profile editor or a request
// intake form.
type formUnit struct {
	cfg formUnitConfig
	api RecordsAPI
}

func newFormUnit(def UnitDefinition, deps UnitDeps) (Unit, error) {
	var cfg formUnitConfig
	if err := decodeConfig(def.Config, &cfg); err != nil {
		return nil, fmt.Errorf("dashboard: decode form config: %w", err)
	}
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("dashboard: form unit needs at least one field")
	}
	if deps.API == nil {
		return nil, errMissingAPI
	}
	if cfg.Endpoint == "" {
		if cfg.Resource == "" {
			return nil, errMissingResource
		}
		cfg.Endpoint = "/" + cfg.Resource
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if cfg.SubmitLabel == "" {
		cfg.SubmitLabel = "Submit"
	}
	if cfg.SuccessMessage == "" {
		cfg.SuccessMessage = "Saved successfully."
	}
	return &formUnit{cfg: cfg, api: deps.API}, nil
}

func (u *formUnit) newForm(uc UnitContext, initial form.Values) *form.Form {
	f := &form.Form{
		Fields:    append([]form.Field(nil), u.cfg.Fields...),
		Endpoint:  strings.ReplaceAll(u.cfg.Endpoint, subjectPlaceholder, url.PathEscape(uc.Identity.SubjectID)),
		Method:    u.cfg.Method,
		Initial:   initial,
		Submitter: u.api,
	}
	if u.cfg.OwnerField != "" {
		f.Fields = append(f.Fields, form.Field{Name: u.cfg.OwnerField, Kind: form.KindHidden})
	}
	return f
}

func (u *formUnit) Render(ctx context.Context, uc UnitContext) (UnitData, error) {
	initial := form.Values{}
	if u.cfg.Prefetch != nil && uc.Identity.SubjectID != "" {
		record, err := u.api.Get(ctx, u.cfg.Prefetch.Resource, uc.Identity.SubjectID)
		if err != nil {
			return nil, err
		}
		for k, v := range record {
			initial[k] = v
		}
	}
	f := u.newForm(uc, initial)
	var (
		values form.Values
		errs   form.Errors
	)
	data := UnitData{
		"title":        u.cfg.Title,
		"description":  u.cfg.Description,
		"submit_label": u.cfg.SubmitLabel,
	}
	if uc.Form != nil {
		values, errs = uc.Form.Values, uc.Form.Errors
		if uc.Form.Message != "" {
			data["message"] = uc.Form.Message
		}
	}
	view := f.View(f.Merge(values), errs)
	view.Endpoint = uc.ActionURL("submit")
	view.Method = http.MethodPost
	data["form"] = view
	return data, nil
}

// Submit sends the form to its endpoint. PUT and PATCH forms report an
// update, everything else a create.
func (u *formUnit) Submit(ctx context.Context, uc UnitContext, posted url.Values) (SubmitOutcome, error) {
	f := u.newForm(uc, nil)
	values := f.ParseValues(posted)
	if u.cfg.OwnerField != "" {
		values[u.cfg.OwnerField] = uc.Identity.SubjectID
	}
	result, err := f.Submit(ctx, values)
	outcome := SubmitOutcome{Result: result}
	if err != nil {
		return outcome, err
	}
	if outcome.Result.Message == "" {
		outcome.Result.Message = u.cfg.SuccessMessage
	}
	reason := "create"
	id, _ := table.RowID(result.Response)
	if u.cfg.Method == http.MethodPut || u.cfg.Method == http.MethodPatch {
		reason = "update"
		if id == "" {
			id = uc.Identity.SubjectID
		}
	}
	resource := u.cfg.Resource
	if resource == "" {
		resource = strings.Trim(strings.SplitN(strings.TrimPrefix(u.cfg.Endpoint, "/"), "/", 2)[0], "/")
	}
	outcome.Event = RecordEvent{
		Resource:  resource,
		RecordID:  id,
		UnitKey:   uc.Entry.Key,
		Reason:    reason,
		SubjectID: uc.Identity.SubjectID,
	}
	return outcome, nil
}
