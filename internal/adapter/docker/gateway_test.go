package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"microiaas"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

func TestClassifyNotFound(t *testing.T) {
	err := classify(fmt.Errorf("inspect container %q: %w", "box1", errdefs.ErrNotFound))
	if !errors.Is(err, microiaas.ErrNotFound) {
		t.Fatalf("classify(not found) = %v, want ErrNotFound", err)
	}
	if errors.Is(err, microiaas.ErrEngineAPI) {
		t.Fatalf("classify(not found) also matches ErrEngineAPI: %v", err)
	}
}

func TestClassifyDefaultIsEngineAPI(t *testing.T) {
	cause := errors.New("409 conflict: name already in use")
	err := classify(cause)
	if !errors.Is(err, microiaas.ErrEngineAPI) {
		t.Fatalf("classify(other) = %v, want ErrEngineAPI", err)
	}
	// The original cause stays on the chain for verbatim surfacing.
	if !errors.Is(err, cause) {
		t.Fatalf("classify dropped the cause: %v", err)
	}
}

func TestClassifyNil(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Fatalf("classify(nil) = %v, want nil", err)
	}
}

// logsClient stubs just the two client calls Logs makes. The embedded nil
// interface satisfies client.APIClient; any other method would panic.
type logsClient struct {
	client.APIClient
	tty    bool
	stream []byte
}

func (c logsClient) ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error) {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{ID: id, Name: "/box1"},
		Config:            &container.Config{Tty: c.tty},
	}, nil
}

func (c logsClient) ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(c.stream)), nil
}

// frame wraps one payload in the engine's stdout multiplex header.
func frame(payload string) []byte {
	n := len(payload)
	header := []byte{1, 0, 0, 0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	return append(header, payload...)
}

func TestLogsTTYStreamIsVerbatim(t *testing.T) {
	// A TTY container emits an unframed stream; treating log text as frame
	// headers would swallow most of it.
	g := NewFromClient(logsClient{tty: true, stream: []byte("hello world\n")})

	out, err := g.Logs(context.Background(), "ctr-1", 50)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("Logs = %q, want raw stream text", out)
	}
}

func TestLogsMultiplexedStreamIsStripped(t *testing.T) {
	stream := append(frame("line1\n"), frame("line2\n")...)
	g := NewFromClient(logsClient{tty: false, stream: stream})

	out, err := g.Logs(context.Background(), "ctr-1", 50)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if out != "line1\nline2" {
		t.Fatalf("Logs = %q, want framing stripped", out)
	}
}

func TestClassifyIsStable(t *testing.T) {
	// Classifying an already-classified error must not re-tag it.
	err := classify(fmt.Errorf("wrapped: %w", errdefs.ErrNotFound))
	again := classify(err)
	if !errors.Is(again, microiaas.ErrNotFound) {
		t.Fatalf("re-classified error = %v, want ErrNotFound", again)
	}
	if errors.Is(again, microiaas.ErrEngineAPI) {
		t.Fatalf("re-classification re-tagged the error: %v", again)
	}
}
