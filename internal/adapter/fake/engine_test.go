package fake

import (
	"context"
	"errors"
	"testing"

	"microiaas"
)

func TestEngine_ResolvesByNameAndID(t *testing.T) {
	e := NewEngine()
	id := e.AddContainer("box1", "ubuntu:latest", true)

	byName, err := e.Get(context.Background(), "box1")
	if err != nil {
		t.Fatalf("Get by name: %v", err)
	}
	byID, err := e.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get by id: %v", err)
	}
	if byName.ID != byID.ID || byName.Name != "box1" {
		t.Errorf("views diverge: %+v vs %+v", byName, byID)
	}
}

func TestEngine_CreateConflictAndMissingImage(t *testing.T) {
	e := NewEngine("ubuntu:latest")
	e.AddContainer("box1", "ubuntu:latest", false)

	_, err := e.Create(context.Background(), microiaas.CreateSpec{Name: "box1", Image: "ubuntu:latest"})
	if !errors.Is(err, microiaas.ErrEngineAPI) {
		t.Errorf("duplicate name: expected ErrEngineAPI, got %v", err)
	}

	_, err = e.Create(context.Background(), microiaas.CreateSpec{Name: "box2", Image: "ghost:latest"})
	if !errors.Is(err, microiaas.ErrImageUnavailable) {
		t.Errorf("missing image: expected ErrImageUnavailable, got %v", err)
	}

	if err := e.PullImage(context.Background(), "ghost:latest"); err != nil {
		t.Fatalf("PullImage: %v", err)
	}
	if _, err := e.Create(context.Background(), microiaas.CreateSpec{Name: "box2", Image: "ghost:latest"}); err != nil {
		t.Errorf("create after pull: %v", err)
	}
}

func TestEngine_RemoveRequiresForceWhenRunning(t *testing.T) {
	e := NewEngine()
	id := e.AddContainer("box1", "ubuntu:latest", true)

	if err := e.Remove(context.Background(), id, false); !errors.Is(err, microiaas.ErrEngineAPI) {
		t.Errorf("expected ErrEngineAPI without force, got %v", err)
	}
	if err := e.Remove(context.Background(), id, true); err != nil {
		t.Fatalf("forced remove: %v", err)
	}
	if _, err := e.Get(context.Background(), id); !errors.Is(err, microiaas.ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestEngine_ErrorHooksTakePrecedence(t *testing.T) {
	e := NewEngine()
	e.AddContainer("box1", "ubuntu:latest", true)
	hookErr := microiaas.Classify(microiaas.ErrEngineUnreachable, errors.New("daemon down"))
	e.StopErr = func(ctx context.Context, id string) error { return hookErr }

	if err := e.Stop(context.Background(), "box1"); !errors.Is(err, microiaas.ErrEngineUnreachable) {
		t.Errorf("expected hook error, got %v", err)
	}
	// The call is still recorded even when the hook fails it.
	if len(e.Calls("Stop")) != 1 {
		t.Error("failed call not recorded")
	}
	// State untouched on hook failure.
	c, _ := e.Get(context.Background(), "box1")
	if !c.Running {
		t.Error("hook failure still mutated state")
	}
}
