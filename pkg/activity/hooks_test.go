package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksNotifyDropsIncompleteEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{nil, capture}

	incomplete := []Event{
		{},
		{Verb: "dashboard.record.create", ObjectType: "tasks"},
		{Verb: " ", ObjectType: "tasks", ObjectID: "t1"},
	}
	for _, evt := range incomplete {
		require.NoError(t, hooks.Notify(context.Background(), evt))
	}
	assert.Empty(t, capture.Events)

	require.NoError(t, hooks.Notify(context.Background(), Event{
		Verb:       " dashboard.record.update ",
		ObjectType: " customers ",
		ObjectID:   " c-9 ",
	}))
	require.Len(t, capture.Events, 1)
	got := capture.Events[0]
	assert.Equal(t, "dashboard.record.update", got.Verb)
	assert.Equal(t, "customers", got.ObjectType)
	assert.Equal(t, "c-9", got.ObjectID)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestNormalizeEventClonesMutableFields(t *testing.T) {
	occurred := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	evt := Event{
		Verb:       "dashboard.form.submit",
		ObjectType: "contact-requests",
		ObjectID:   "cr-1",
		Metadata:   map[string]any{"unit": "contact"},
		Recipients: []string{"sales@agency.test"},
		OccurredAt: occurred,
	}
	n := NormalizeEvent(evt)

	n.Metadata["unit"] = "changed"
	n.Recipients[0] = "other@agency.test"
	assert.Equal(t, "contact", evt.Metadata["unit"])
	assert.Equal(t, "sales@agency.test", evt.Recipients[0])
	assert.Equal(t, occurred, n.OccurredAt)

	bare := NormalizeEvent(Event{Verb: "v"})
	assert.Nil(t, bare.Metadata)
	assert.Nil(t, bare.Recipients)
}
