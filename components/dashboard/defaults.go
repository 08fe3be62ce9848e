package dashboard

import (
	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/table"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// Built-in unit kind codes.
const (
	KindResourceTable = "resource_table"
	KindForm          = "form"
	KindChart         = "chart"
	KindOverview      = "overview"
)

// DefaultUnitKinds returns the built-in unit kinds.
func DefaultUnitKinds() []UnitKind {
	return []UnitKind{
		{
			Code:        KindResourceTable,
			Name:        "Resource Table",
			Description: "Paginated, filterable list of one API resource",
			Schema: map[string]any{
				"type":     "object",
				"required": []string{"resource", "columns"},
				"properties": map[string]any{
					"resource":   map[string]any{"type": "string", "minLength": 1},
					"title":      map[string]any{"type": "string"},
					"page_size":  map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
					"scope":      map[string]any{"type": "string", "enum": []string{ScopeAll, ScopeOwn}},
					"deletable":  map[string]any{"type": "boolean"},
					"exportable": map[string]any{"type": "boolean"},
					"columns": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []string{"key"},
							"properties": map[string]any{
								"key":    map[string]any{"type": "string", "minLength": 1},
								"format": map[string]any{"type": "string", "enum": []string{FormatCurrency, FormatDate, FormatStatus, FormatRef, FormatBool}},
							},
						},
					},
				},
			},
			Factory: newResourceTableUnit,
		},
		{
			Code:        KindForm,
			Name:        "Form",
			Description: "Standalone form posting to the API",
			Schema: map[string]any{
				"type":     "object",
				"required": []string{"fields"},
				"properties": map[string]any{
					"method": map[string]any{"type": "string", "enum": []string{"POST", "PUT", "PATCH"}},
					"fields": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []string{"name"},
						},
					},
				},
			},
			Factory: newFormUnit,
		},
		{
			Code:        KindChart,
			Name:        "Chart",
			Description: "Aggregated chart of one data type",
			Schema: map[string]any{
				"type":     "object",
				"required": []string{"data_type"},
				"properties": map[string]any{
					"data_type": map[string]any{"type": "string", "minLength": 1},
					"kind":      map[string]any{"type": "string", "enum": []string{"", string(ChartBar), string(ChartPie), string(ChartLine), string(ChartArea)}},
					"limit":     map[string]any{"type": "integer", "minimum": 1},
				},
			},
			Factory: newChartUnit,
		},
		{
			Code:        KindOverview,
			Name:        "Overview",
			Description: "Record counters and charts",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"stats":  map[string]any{"type": "array", "items": map[string]any{"type": "object", "required": []string{"label", "resource"}}},
					"charts": map[string]any{"type": "array", "items": map[string]any{"type": "object", "required": []string{"data_type"}}},
				},
			},
			Factory: newOverviewUnit,
		},
	}
}

var (
	serviceRequestStatusOptions = []table.Option{
		{Value: "pending", Label: "Pending"},
		{Value: "in_progress", Label: "In Progress"},
		{Value: "completed", Label: "Completed"},
		{Value: "cancelled", Label: "Cancelled"},
	}
	taskStatusOptions = []table.Option{
		{Value: "todo", Label: "To Do"},
		{Value: "in_progress", Label: "In Progress"},
		{Value: "done", Label: "Done"},
	}
	transactionTypeOptions = []table.Option{
		{Value: "income", Label: "Income"},
		{Value: "expense", Label: "Expense"},
	}
)

func formOptions(options []table.Option) []form.Option {
	out := make([]form.Option, len(options))
	for i, opt := range options {
		out[i] = form.Option{Value: opt.Value, Label: opt.Label}
	}
	return out
}

func required() form.Rule { return form.Rule{Type: form.RuleRequired} }

func phoneRules() []form.Rule {
	return []form.Rule{
		required(),
		{Type: form.RulePattern, Value: "[0-9]*", Message: "Digits only"},
		{Type: form.RuleLength, Value: 10},
	}
}

func searchFilter() filterConfig {
	return filterConfig{Key: "search", Label: "Search", Kind: string(table.FilterText), Placeholder: "Search..."}
}

func statusFilter(options []table.Option) filterConfig {
	return filterConfig{Key: "status", Label: "Status", Kind: string(table.FilterSelect), Options: options}
}

func customersEntry() EntryDefinition {
	return EntryDefinition{
		Key: "customers", Label: "Customers", Icon: "users",
		LabelLocalized: map[string]string{"es": "Clientes"},
		Unit: UnitDefinition{Kind: KindResourceTable, Config: map[string]any{
			"resource": api.ResourceCustomers,
			"columns": []columnConfig{
				{Key: "firstName", Header: "First Name", Sortable: true},
				{Key: "lastName", Header: "Last Name", Sortable: true},
				{Key: "email", Header: "Email", Sortable: true},
				{Key: "phone", Header: "Phone"},
				{Key: "createdAt", Header: "Joined", Sortable: true, Format: FormatDate},
			},
			"filters":    []filterConfig{searchFilter()},
			"deletable":  true,
			"exportable": true,
			"create": createConfig{Title: "New Customer", Fields: []form.Field{
				{Name: "firstName", Label: "First Name", Rules: []form.Rule{required()}},
				{Name: "lastName", Label: "Last Name", Rules: []form.Rule{required()}},
				{Name: "email", Label: "Email", Kind: form.KindEmail, Rules: []form.Rule{required(), {Type: form.RuleEmail}}},
				{Name: "phone", Label: "Phone", Kind: form.KindPhone, Rules: phoneRules()},
				{Name: "address", Label: "Address", Kind: form.KindTextarea},
			}},
		}},
	}
}

func servicesEntry(manage bool) EntryDefinition {
	cfg := map[string]any{
		"resource": api.ResourceServices,
		"columns": []columnConfig{
			{Key: "name", Header: "Service", Sortable: true},
			{Key: "category", Header: "Category", Sortable: true},
			{Key: "price", Header: "Price", Sortable: true, Format: FormatCurrency},
			{Key: "active", Header: "Active", Format: FormatBool},
		},
		"filters": []filterConfig{searchFilter()},
	}
	if manage {
		cfg["deletable"] = true
		cfg["exportable"] = true
		cfg["create"] = createConfig{Title: "New Service", Fields: []form.Field{
			{Name: "name", Label: "Name", Rules: []form.Rule{required()}},
			{Name: "category", Label: "Category"},
			{Name: "description", Label: "Description", Kind: form.KindTextarea},
			{Name: "price", Label: "Price", Kind: form.KindNumber, Rules: []form.Rule{required()}},
			{Name: "active", Label: "Active", Kind: form.KindCheckbox, Default: true},
		}}
	}
	return EntryDefinition{
		Key: "services", Label: "Services", Icon: "briefcase",
		LabelLocalized: map[string]string{"es": "Servicios"},
		Unit:           UnitDefinition{Kind: KindResourceTable, Config: cfg},
	}
}

func serviceRequestsEntry(scope string) EntryDefinition {
	cfg := map[string]any{
		"resource": api.ResourceServiceRequests,
		"title":    "Service Requests",
		"scope":    scope,
		"columns": []columnConfig{
			{Key: "service", Header: "Service", Format: FormatRef},
			{Key: "customer", Header: "Customer", Format: FormatRef},
			{Key: "status", Header: "Status", Sortable: true, Format: FormatStatus},
			{Key: "priority", Header: "Priority", Sortable: true, Format: FormatStatus},
			{Key: "createdAt", Header: "Requested", Sortable: true, Format: FormatDate},
		},
		"filters": []filterConfig{searchFilter(), statusFilter(serviceRequestStatusOptions)},
	}
	if scope == ScopeAll {
		cfg["deletable"] = true
		cfg["exportable"] = true
	}
	return EntryDefinition{
		Key: "service-requests", Label: "Service Requests", Icon: "inbox",
		LabelLocalized: map[string]string{"es": "Solicitudes"},
		Unit:           UnitDefinition{Kind: KindResourceTable, Config: cfg},
	}
}

func tasksEntry(scope string) EntryDefinition {
	cfg := map[string]any{
		"resource": api.ResourceTasks,
		"scope":    scope,
		"columns": []columnConfig{
			{Key: "title", Header: "Task", Sortable: true},
			{Key: "assignedTo", Header: "Assignee", Format: FormatRef},
			{Key: "status", Header: "Status", Sortable: true, Format: FormatStatus},
			{Key: "dueDate", Header: "Due", Sortable: true, Format: FormatDate},
		},
		"filters": []filterConfig{searchFilter(), statusFilter(taskStatusOptions)},
	}
	if scope == ScopeOwn {
		cfg["owner_field"] = "assignedTo"
	} else {
		cfg["deletable"] = true
		cfg["exportable"] = true
		cfg["create"] = createConfig{Title: "New Task", Fields: []form.Field{
			{Name: "title", Label: "Title", Rules: []form.Rule{required()}},
			{Name: "description", Label: "Description", Kind: form.KindTextarea},
			{Name: "assignedTo", Label: "Assignee ID"},
			{Name: "status", Label: "Status", Kind: form.KindSelect, Default: "todo", Options: formOptions(taskStatusOptions)},
			{Name: "dueDate", Label: "Due Date", Kind: form.KindDate},
		}}
	}
	return EntryDefinition{
		Key: "tasks", Label: "Tasks", Icon: "check-square",
		LabelLocalized: map[string]string{"es": "Tareas"},
		Unit:           UnitDefinition{Kind: KindResourceTable, Config: cfg},
	}
}

func transactionsEntry(scope, ownerField string) EntryDefinition {
	cfg := map[string]any{
		"resource": api.ResourceTransactions,
		"scope":    scope,
		"columns": []columnConfig{
			{Key: "description", Header: "Description"},
			{Key: "type", Header: "Type", Sortable: true, Format: FormatStatus},
			{Key: "amount", Header: "Amount", Sortable: true, Format: FormatCurrency},
			{Key: "date", Header: "Date", Sortable: true, Format: FormatDate},
		},
		"filters": []filterConfig{
			{Key: "type", Label: "Type", Kind: string(table.FilterSelect), Options: transactionTypeOptions},
			{Key: "date", Label: "Date", Kind: string(table.FilterDate)},
		},
		"exportable": true,
	}
	if scope == ScopeOwn {
		cfg["owner_field"] = ownerField
	} else {
		cfg["deletable"] = true
		cfg["create"] = createConfig{Title: "New Transaction", Fields: []form.Field{
			{Name: "description", Label: "Description", Rules: []form.Rule{required()}},
			{Name: "type", Label: "Type", Kind: form.KindSelect, Options: formOptions(transactionTypeOptions), Rules: []form.Rule{required()}},
			{Name: "amount", Label: "Amount", Kind: form.KindNumber, Rules: []form.Rule{required()}},
			{Name: "date", Label: "Date", Kind: form.KindDate},
		}}
	}
	return EntryDefinition{
		Key: "transactions", Label: "Transactions", Icon: "dollar-sign",
		LabelLocalized: map[string]string{"es": "Transacciones"},
		Unit:           UnitDefinition{Kind: KindResourceTable, Config: cfg},
	}
}

func profileEntry(resource string) EntryDefinition {
	fields := []form.Field{
		{Name: "email", Label: "Email", Kind: form.KindEmail, Rules: []form.Rule{required(), {Type: form.RuleEmail}}},
		{Name: "phone", Label: "Phone", Kind: form.KindPhone, Rules: phoneRules()},
	}
	switch resource {
	case api.ResourceCustomers:
		fields = append([]form.Field{
			{Name: "firstName", Label: "First Name", Rules: []form.Rule{required()}},
			{Name: "lastName", Label: "Last Name", Rules: []form.Rule{required()}},
		}, fields...)
		fields = append(fields, form.Field{Name: "address", Label: "Address", Kind: form.KindTextarea})
	case api.ResourceCoworkers:
		fields = append([]form.Field{
			{Name: "name", Label: "Name", Rules: []form.Rule{required()}},
		}, fields...)
		fields = append(fields, form.Field{Name: "position", Label: "Position"})
	}
	return EntryDefinition{
		Key: "profile", Label: "Profile", Icon: "user",
		LabelLocalized: map[string]string{"es": "Perfil"},
		Unit: UnitDefinition{Kind: KindForm, Config: map[string]any{
			"title":           "My Profile",
			"resource":        resource,
			"endpoint":        "/" + resource + "/" + subjectPlaceholder,
			"method":          "PUT",
			"submit_label":    "Save",
			"success_message": "Profile updated.",
			"fields":          fields,
			"prefetch":        prefetchConfig{Resource: resource},
		}},
	}
}

func newRequestEntry() EntryDefinition {
	return EntryDefinition{
		Key: "new-request", Label: "New Request", Icon: "plus-circle",
		LabelLocalized: map[string]string{"es": "Nueva solicitud"},
		Unit: UnitDefinition{Kind: KindForm, Config: map[string]any{
			"title":           "Request a Service",
			"resource":        api.ResourceServiceRequests,
			"submit_label":    "Send Request",
			"success_message": "Your request was submitted.",
			"owner_field":     "customer",
			"fields": []form.Field{
				{Name: "service", Label: "Service ID", Rules: []form.Rule{required()}},
				{Name: "description", Label: "Description", Kind: form.KindTextarea, Rules: []form.Rule{required(), {Type: form.RuleMinLength, Value: 10}}},
				{Name: "priority", Label: "Priority", Kind: form.KindSelect, Default: "medium", Options: []form.Option{
					{Value: "low", Label: "Low"}, {Value: "medium", Label: "Medium"}, {Value: "high", Label: "High"},
				}},
				{Name: "preferredDate", Label: "Preferred Date", Kind: form.KindDate},
			},
		}},
	}
}

func contactEntry() EntryDefinition {
	return EntryDefinition{
		Key: "contact", Label: "Contact Us", Icon: "mail",
		LabelLocalized: map[string]string{"es": "Contacto"},
		Unit: UnitDefinition{Kind: KindForm, Config: map[string]any{
			"title":           "Contact Us",
			"resource":        api.ResourceContactRequests,
			"submit_label":    "Send",
			"success_message": "Thanks, we will be in touch.",
			"fields": []form.Field{
				{Name: "name", Label: "Name", Rules: []form.Rule{required()}},
				{Name: "email", Label: "Email", Kind: form.KindEmail, Rules: []form.Rule{required(), {Type: form.RuleEmail}}},
				{Name: "contactMethod", Label: "Preferred Contact", Kind: form.KindSelect, Default: "email", Options: []form.Option{
					{Value: "email", Label: "Email"}, {Value: "phone", Label: "Phone"},
				}},
				{
					Name: "phone", Label: "Phone", Kind: form.KindPhone, Rules: phoneRules(),
					DependsOn: &form.Dependency{Field: "contactMethod", Equals: []string{"phone"}},
				},
				{Name: "message", Label: "Message", Kind: form.KindTextarea, Rules: []form.Rule{required(), {Type: form.RuleMinLength, Value: 10}}},
			},
		}},
	}
}

func overviewEntry() EntryDefinition {
	return EntryDefinition{
		Key: "overview", Label: "Overview", Icon: "home",
		LabelLocalized: map[string]string{"es": "Resumen"},
		Unit: UnitDefinition{Kind: KindOverview, Config: map[string]any{
			"title": "Agency Overview",
			"stats": []statConfig{
				{Label: "Customers", Resource: api.ResourceCustomers, Icon: "users"},
				{Label: "Pending Requests", Resource: api.ResourceServiceRequests, Filters: map[string]string{"status": "pending"}, Icon: "inbox"},
				{Label: "Open Tasks", Resource: api.ResourceTasks, Filters: map[string]string{"status": "in_progress"}, Icon: "check-square"},
				{Label: "Unread Messages", Resource: api.ResourceContactRequests, Filters: map[string]string{"status": "new"}, Icon: "mail"},
			},
			"charts": []chartUnitConfig{
				{DataType: "service-requests"},
				{DataType: "tasks"},
				{DataType: "transactions"},
				{DataType: "revenue"},
			},
		}},
	}
}

func coworkersEntry() EntryDefinition {
	return EntryDefinition{
		Key: "coworkers", Label: "Coworkers", Icon: "id-badge",
		LabelLocalized: map[string]string{"es": "Colaboradores"},
		Unit: UnitDefinition{Kind: KindResourceTable, Config: map[string]any{
			"resource": api.ResourceCoworkers,
			"columns": []columnConfig{
				{Key: "name", Header: "Name", Sortable: true},
				{Key: "email", Header: "Email", Sortable: true},
				{Key: "position", Header: "Position", Sortable: true},
				{Key: "phone", Header: "Phone"},
			},
			"filters":   []filterConfig{searchFilter()},
			"deletable": true,
			"create": createConfig{Title: "New Coworker", Fields: []form.Field{
				{Name: "name", Label: "Name", Rules: []form.Rule{required()}},
				{Name: "email", Label: "Email", Kind: form.KindEmail, Rules: []form.Rule{required(), {Type: form.RuleEmail}}},
				{Name: "phone", Label: "Phone", Kind: form.KindPhone, Rules: phoneRules()},
				{Name: "position", Label: "Position"},
			}},
		}},
	}
}

func contactRequestsEntry() EntryDefinition {
	return EntryDefinition{
		Key: "contact-requests", Label: "Contact Requests", Icon: "mail",
		LabelLocalized: map[string]string{"es": "Mensajes"},
		Unit: UnitDefinition{Kind: KindResourceTable, Config: map[string]any{
			"resource": api.ResourceContactRequests,
			"title":    "Contact Requests",
			"columns": []columnConfig{
				{Key: "name", Header: "Name", Sortable: true},
				{Key: "email", Header: "Email"},
				{Key: "message", Header: "Message"},
				{Key: "status", Header: "Status", Sortable: true, Format: FormatStatus},
				{Key: "createdAt", Header: "Received", Sortable: true, Format: FormatDate},
			},
			"filters": []filterConfig{searchFilter(), statusFilter([]table.Option{
				{Value: "new", Label: "New"}, {Value: "read", Label: "Read"}, {Value: "replied", Label: "Replied"},
			})},
			"deletable": true,
		}},
	}
}

// DefaultRoleDefinitions returns the built-in menus for every known role.
func DefaultRoleDefinitions() []RoleDefinition {
	return []RoleDefinition{
		{
			Key: session.RoleAdmin,
			Entries: []EntryDefinition{
				overviewEntry(),
				customersEntry(),
				servicesEntry(true),
				serviceRequestsEntry(ScopeAll),
				tasksEntry(ScopeAll),
				transactionsEntry(ScopeAll, ""),
				coworkersEntry(),
				contactRequestsEntry(),
			},
		},
		{
			Key: session.RoleCustomer,
			Entries: []EntryDefinition{
				profileEntry(api.ResourceCustomers),
				serviceRequestsEntry(ScopeOwn),
				newRequestEntry(),
				transactionsEntry(ScopeOwn, "customer"),
			},
		},
		{
			Key: session.RoleCoworker,
			Entries: []EntryDefinition{
				profileEntry(api.ResourceCoworkers),
				tasksEntry(ScopeOwn),
				transactionsEntry(ScopeOwn, "coworker"),
			},
		},
		{
			Key: session.RoleUser,
			Entries: []EntryDefinition{
				profileEntry(api.ResourceCustomers),
				servicesEntry(false),
				contactEntry(),
			},
		},
	}
}
