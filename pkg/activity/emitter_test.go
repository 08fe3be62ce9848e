package activity

import (
	"context"
	"errors"
	"testing"
)

func TestEmitterStampsChannel(t *testing.T) {
	capture := &CaptureHook{}
	em := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if !em.Enabled() {
		t.Fatalf("expected emitter enabled")
	}
	err := em.Emit(context.Background(), Event{
		Verb:       "dashboard.record.create",
		ObjectType: "tasks",
		ObjectID:   "t1",
	})
	if err != nil {
		t.Fatalf("emit returned error: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event emitted, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel %s, got %q", DefaultChannel, capture.Events[0].Channel)
	}

	audit := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "audit"})
	_ = audit.Emit(context.Background(), Event{Verb: "dashboard.session.logout", ObjectType: "session", ObjectID: "u1"})
	_ = audit.Emit(context.Background(), Event{Verb: "dashboard.session.logout", ObjectType: "session", ObjectID: "u2", Channel: "security"})
	if got := capture.Events[1].Channel; got != "audit" {
		t.Fatalf("expected configured channel, got %q", got)
	}
	if got := capture.Events[2].Channel; got != "security" {
		t.Fatalf("expected event channel to win, got %q", got)
	}
}

func TestEmitterDisabled(t *testing.T) {
	if NewEmitter(nil, Config{Enabled: true}).Enabled() {
		t.Fatalf("expected emitter disabled without hooks")
	}
	capture := &CaptureHook{}
	em := NewEmitter(Hooks{capture}, Config{})
	if err := em.Emit(context.Background(), Event{Verb: "v", ObjectType: "o", ObjectID: "1"}); err != nil {
		t.Fatalf("disabled emit returned error: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("disabled emitter must not reach hooks")
	}
	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("nil emitter reports enabled")
	}
}

func TestEmitterJoinsHookErrors(t *testing.T) {
	capture := &CaptureHook{}
	failing := HookFunc(func(context.Context, Event) error { return errors.New("sink offline") })
	em := NewEmitter(Hooks{failing, capture}, Config{Enabled: true})

	err := em.Emit(context.Background(), Event{Verb: "dashboard.record.delete", ObjectType: "customers", ObjectID: "c1"})
	if err == nil {
		t.Fatalf("expected hook error")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("a failing hook must not stop the others")
	}
}
