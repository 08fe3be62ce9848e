package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// RecordCreator creates API records. *api.Client satisfies it.
type RecordCreator interface {
	Create(ctx context.Context, resource string, payload api.Record) (api.Record, error)
}

// SeedResource is a batch of records for one resource.
type SeedResource struct {
	Resource string
	Records  []api.Record
}

// SeedRecords creates every record in order. It keeps going after a failure
// and returns the joined errors.
func SeedRecords(ctx context.Context, creator RecordCreator, seed []SeedResource) error {
	if creator == nil {
		return errors.New("dashboard: record creator is required to seed data")
	}
	var seedErr error
	for _, batch := range seed {
		for idx, rec := range batch.Records {
			if _, err := creator.Create(ctx, batch.Resource, rec); err != nil {
				seedErr = errors.Join(seedErr, fmt.Errorf("seed %s[%d]: %w", batch.Resource, idx, err))
			}
		}
	}
	return seedErr
}

// DemoSeed returns starter data tied to the given accounts: customer and
// coworker accounts get profile records under their subject ids.
func DemoSeed(accounts []api.DemoAccount) []SeedResource {
	var customerID, coworkerID string
	customers := SeedResource{Resource: api.ResourceCustomers}
	coworkers := SeedResource{Resource: api.ResourceCoworkers}
	for _, acc := range accounts {
		first, last, _ := strings.Cut(acc.Name, " ")
		switch acc.Role {
		case "customer", "user":
			if acc.Role == "customer" && customerID == "" {
				customerID = acc.SubjectID()
			}
			customers.Records = append(customers.Records, api.Record{
				"_id": acc.SubjectID(), "firstName": first, "lastName": last,
				"email": acc.Email, "phone": "5550100100", "status": "active",
			})
		case "coworker":
			if coworkerID == "" {
				coworkerID = acc.SubjectID()
			}
			coworkers.Records = append(coworkers.Records, api.Record{
				"_id": acc.SubjectID(), "name": acc.Name, "email": acc.Email,
				"phone": "5550100200", "position": "Designer",
			})
		}
	}
	customers.Records = append(customers.Records,
		api.Record{"firstName": "Noah", "lastName": "Reyes", "email": "noah@example.com", "phone": "5550100300", "status": "active"},
		api.Record{"firstName": "Iris", "lastName": "Okafor", "email": "iris@example.com", "phone": "5550100400", "status": "inactive"},
	)

	services := SeedResource{Resource: api.ResourceServices, Records: []api.Record{
		{"_id": "svc-web", "name": "Website Redesign", "category": "Design", "price": 4800.0, "active": true},
		{"_id": "svc-seo", "name": "SEO Audit", "category": "Marketing", "price": 950.0, "active": true},
		{"_id": "svc-brand", "name": "Brand Identity", "category": "Design", "price": 3200.0, "active": true},
		{"_id": "svc-ads", "name": "Ad Campaign", "category": "Marketing", "price": 1500.0, "active": false},
	}}
	webRef := api.Record{"_id": "svc-web", "name": "Website Redesign"}
	seoRef := api.Record{"_id": "svc-seo", "name": "SEO Audit"}
	brandRef := api.Record{"_id": "svc-brand", "name": "Brand Identity"}

	requests := SeedResource{Resource: api.ResourceServiceRequests, Records: []api.Record{
		{"service": webRef, "customer": customerID, "description": "Refresh our landing pages", "status": "pending", "priority": "high"},
		{"service": seoRef, "customer": customerID, "description": "Quarterly SEO review", "status": "in_progress", "priority": "medium"},
		{"service": brandRef, "customer": "", "description": "New logo and palette", "status": "completed", "priority": "low"},
	}}
	tasks := SeedResource{Resource: api.ResourceTasks, Records: []api.Record{
		{"title": "Wireframes", "assignedTo": coworkerID, "status": "in_progress", "dueDate": "2026-11-02"},
		{"title": "Keyword research", "assignedTo": coworkerID, "status": "todo", "dueDate": "2026-11-09"},
		{"title": "Logo handoff", "assignedTo": "", "status": "done", "dueDate": "2026-10-12"},
	}}
	transactions := SeedResource{Resource: api.ResourceTransactions, Records: []api.Record{
		{"description": "Website deposit", "type": "income", "amount": 2400.0, "service": webRef, "customer": customerID, "date": "2026-10-01"},
		{"description": "SEO audit", "type": "income", "amount": 950.0, "service": seoRef, "customer": customerID, "date": "2026-10-05"},
		{"description": "Stock photos", "type": "expense", "amount": 180.0, "service": webRef, "coworker": coworkerID, "date": "2026-10-06"},
		{"description": "Brand identity", "type": "income", "amount": 3200.0, "service": brandRef, "date": "2026-09-20"},
	}}
	contacts := SeedResource{Resource: api.ResourceContactRequests, Records: []api.Record{
		{"name": "Pat Lee", "email": "pat@example.com", "message": "Do you build online stores?", "status": "new"},
		{"name": "Sam Ortiz", "email": "sam@example.com", "message": "Looking for a quote on branding.", "status": "replied"},
	}}
	return []SeedResource{customers, coworkers, services, requests, tasks, transactions, contacts}
}
