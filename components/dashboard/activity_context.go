package dashboard

import (
	"context"

	"github.com/google/uuid"
)

// ActivityContext carries request-scoped identifiers for activity events.
type ActivityContext struct {
	TenantID  string
	RequestID string
}

type activityContextKey struct{}

// ContextWithActivity stores activity context on the provided context. A
// missing request id is generated.
func ContextWithActivity(ctx context.Context, meta ActivityContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}
	return context.WithValue(ctx, activityContextKey{}, meta)
}

func activityContextFrom(ctx context.Context) ActivityContext {
	if ctx == nil {
		return ActivityContext{}
	}
	if meta, ok := ctx.Value(activityContextKey{}).(ActivityContext); ok {
		return meta
	}
	return ActivityContext{}
}
