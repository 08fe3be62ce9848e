package api

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	goerrors "github.com/goliatone/go-errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Resource names exposed by the agency API.
const (
	ResourceCustomers       = "customers"
	ResourceServices        = "services"
	ResourceServiceRequests = "service-requests"
	ResourceTasks           = "tasks"
	ResourceTransactions    = "transactions"
	ResourceCoworkers       = "coworkers"
	ResourceContactRequests = "contact-requests"
)

// Ref is a reference to another record. It decodes from a bare id or from a
// populated object, keeping the object's id.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = Ref(id)
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("api: reference must be an id or an object: %w", err)
	}
	for _, key := range []string{"_id", "id"} {
		if v, ok := obj[key]; ok && v != nil {
			*r = Ref(fmt.Sprint(v))
			return nil
		}
	}
	*r = ""
	return nil
}

type Customer struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Company   string `json:"company"`
}

type Service struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Category    string  `json:"category"`
}

type ServiceRequest struct {
	Service     Ref    `json:"service" validate:"required"`
	Customer    Ref    `json:"customer"`
	Description string `json:"description" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Budget      any    `json:"budget"`
}

type Task struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	AssignedTo  Ref    `json:"assignedTo"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	DueDate     string `json:"dueDate"`
}

type Transaction struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Type        string  `json:"type" validate:"required,oneof=income expense"`
	Description string  `json:"description"`
	Customer    Ref     `json:"customer"`
	Service     Ref     `json:"service"`
	Date        string  `json:"date"`
}

type CoworkerProfile struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required,min=10"`
}

var entityShapes = map[string]func() any{
	ResourceCustomers:       func() any { return &Customer{} },
	ResourceServices:        func() any { return &Service{} },
	ResourceServiceRequests: func() any { return &ServiceRequest{} },
	ResourceTasks:           func() any { return &Task{} },
	ResourceTransactions:    func() any { return &Transaction{} },
	ResourceCoworkers:       func() any { return &CoworkerProfile{} },
	ResourceContactRequests: func() any { return &ContactRequest{} },
}

// ValidateRecord checks rec against the entity shape registered for resource.
// Unknown resources are accepted as-is.
func ValidateRecord(resource string, rec Record) error {
	shape, ok := entityShapes[strings.Trim(resource, "/")]
	if !ok {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("api: encode %s record: %w", resource, err)
	}
	target := shape()
	if err := json.Unmarshal(data, target); err != nil {
		return goerrors.NewValidation(resource+": record has invalid field types",
			goerrors.FieldError{Field: "record", Message: err.Error()})
	}
	return ValidateStruct(target)
}

// ValidateStruct runs the struct validation tags and reports every failing
// field with its json name.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !goerrors.As(err, &verrs) {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "api: validation failed")
	}
	fields := make([]goerrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields = append(fields, goerrors.FieldError{
			Field:   name,
			Message: fieldMessage(name, fe),
			Value:   fe.Value(),
		})
	}
	return goerrors.NewValidation("api: validation failed", fields...).WithTextCode("RECORD_INVALID")
}

func fieldError(field, message string, value any) error {
	return goerrors.NewValidation("api: validation failed",
		goerrors.FieldError{Field: field, Message: message, Value: value}).WithTextCode("RECORD_INVALID")
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "oneof":
		return name + " must be one of " + fe.Param()
	case "min":
		return name + " must be at least " + fe.Param() + " characters"
	case "gt", "gte":
		return name + " must be greater than " + fe.Param()
	default:
		return name + " is invalid"
	}
}
