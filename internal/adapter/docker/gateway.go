// Package docker implements the container engine gateway over the Docker
// Engine API. It owns no state: every call goes straight to the engine, and
// every engine error is classified into the microiaas failure taxonomy here,
// exactly once, so callers never inspect docker error strings.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"microiaas"
	"microiaas/internal/reconcile"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
)

var _ reconcile.Engine = (*Gateway)(nil)

// sandboxCmd keeps a rented sandbox alive until the operator stops it.
var sandboxCmd = []string{"sleep", "infinity"}

// Gateway is a stateless façade over one Docker engine.
type Gateway struct {
	cli client.APIClient
}

// New creates a Gateway with a Docker client from the environment.
func New() (*Gateway, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Gateway{cli: cli}, nil
}

// NewFromClient wraps an existing Docker client.
func NewFromClient(cli client.APIClient) *Gateway {
	return &Gateway{cli: cli}
}

func (g *Gateway) Close() error {
	return g.cli.Close()
}

// List returns the engine's containers. With includeStopped false only
// running containers are returned.
func (g *Gateway) List(ctx context.Context, includeStopped bool) ([]microiaas.Container, error) {
	summaries, err := g.cli.ContainerList(ctx, container.ListOptions{All: includeStopped})
	if err != nil {
		return nil, classify(fmt.Errorf("list containers: %w", err))
	}
	out := make([]microiaas.Container, 0, len(summaries))
	for _, c := range summaries {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, microiaas.Container{
			ID:      c.ID,
			Name:    name,
			Image:   c.Image,
			State:   c.State,
			Running: c.State == "running",
			Created: time.Unix(c.Created, 0).UTC(),
		})
	}
	return out, nil
}

// Get resolves a container id or name to its live view.
func (g *Gateway) Get(ctx context.Context, id string) (microiaas.Container, error) {
	info, err := g.cli.ContainerInspect(ctx, id)
	if err != nil {
		return microiaas.Container{}, classify(fmt.Errorf("inspect container %q: %w", id, err))
	}
	c := microiaas.Container{
		ID:   info.ID,
		Name: strings.TrimPrefix(info.Name, "/"),
	}
	if info.Config != nil {
		c.Image = info.Config.Image
	}
	if info.State != nil {
		c.State = info.State.Status
		c.Running = info.State.Running
	}
	if t, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
		c.Created = t.UTC()
	}
	return c, nil
}

// Create creates a sandbox container from the operator's spec. It does not
// start it. A missing image is reported as ErrImageUnavailable: the
// container does not exist yet, so NotFound from create can only mean the
// image.
func (g *Gateway) Create(ctx context.Context, spec microiaas.CreateSpec) (string, error) {
	cc := &container.Config{
		Image: spec.Image,
		Cmd:   sandboxCmd,
		Tty:   true,
	}
	hc := &container.HostConfig{}
	if spec.MemoryLimit != "" {
		limit, err := units.RAMInBytes(spec.MemoryLimit)
		if err != nil {
			return "", microiaas.Classify(microiaas.ErrValidation,
				fmt.Errorf("parse memory limit %q: %w", spec.MemoryLimit, err))
		}
		hc.Resources.Memory = limit
	}
	if spec.CPULimit != "" {
		cpus, err := strconv.ParseFloat(spec.CPULimit, 64)
		if err != nil || cpus <= 0 {
			return "", microiaas.Classify(microiaas.ErrValidation,
				fmt.Errorf("parse cpu limit %q", spec.CPULimit))
		}
		hc.Resources.NanoCPUs = int64(cpus * 1e9)
	}

	resp, err := g.cli.ContainerCreate(ctx, cc, hc, nil, nil, spec.Name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", microiaas.Classify(microiaas.ErrImageUnavailable,
				fmt.Errorf("create container %q: %w", spec.Name, err))
		}
		return "", classify(fmt.Errorf("create container %q: %w", spec.Name, err))
	}
	return resp.ID, nil
}

func (g *Gateway) Start(ctx context.Context, id string) error {
	if err := g.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return classify(fmt.Errorf("start container %q: %w", id, err))
	}
	return nil
}

func (g *Gateway) Stop(ctx context.Context, id string) error {
	if err := g.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return classify(fmt.Errorf("stop container %q: %w", id, err))
	}
	return nil
}

func (g *Gateway) Restart(ctx context.Context, id string) error {
	if err := g.cli.ContainerRestart(ctx, id, container.StopOptions{}); err != nil {
		return classify(fmt.Errorf("restart container %q: %w", id, err))
	}
	return nil
}

// Remove removes a container, force-killing it when force is set.
func (g *Gateway) Remove(ctx context.Context, id string, force bool) error {
	if err := g.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: force}); err != nil {
		return classify(fmt.Errorf("remove container %q: %w", id, err))
	}
	return nil
}

// PullImage pulls an image and drains the progress stream to completion.
func (g *Gateway) PullImage(ctx context.Context, img string) error {
	pull, err := g.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return classify(fmt.Errorf("pull image %q: %w", img, err))
	}
	_, _ = io.Copy(io.Discard, pull)
	_ = pull.Close()
	return nil
}

// RawStats fetches a single two-point counter sample. The engine embeds the
// previous reading in the same payload, so one call yields both points.
func (g *Gateway) RawStats(ctx context.Context, id string) (microiaas.RawStats, error) {
	resp, err := g.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return microiaas.RawStats{}, classify(fmt.Errorf("stats for container %q: %w", id, err))
	}
	defer resp.Body.Close()

	var payload container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return microiaas.RawStats{}, classify(fmt.Errorf("decode stats for container %q: %w", id, err))
	}

	raw := microiaas.RawStats{
		CPUTotal:     payload.CPUStats.CPUUsage.TotalUsage,
		PreCPUTotal:  payload.PreCPUStats.CPUUsage.TotalUsage,
		SystemCPU:    payload.CPUStats.SystemUsage,
		PreSystemCPU: payload.PreCPUStats.SystemUsage,
		OnlineCPUs:   int(payload.CPUStats.OnlineCPUs),
		PerCPUCount:  len(payload.CPUStats.CPUUsage.PercpuUsage),
		MemoryUsage:  payload.MemoryStats.Usage,
		MemoryLimit:  payload.MemoryStats.Limit,
	}
	if len(payload.Networks) > 0 {
		raw.Networks = make(map[string]microiaas.NetworkCounters, len(payload.Networks))
		for name, nw := range payload.Networks {
			raw.Networks[name] = microiaas.NetworkCounters{RxBytes: nw.RxBytes, TxBytes: nw.TxBytes}
		}
	}
	return raw, nil
}

// Logs returns the last tail lines of a container's output. The engine only
// multiplexes stdout/stderr into its 8-byte framed stream for containers
// running without a TTY; a TTY container (every sandbox Create provisions)
// emits a raw stream that must be passed through verbatim.
func (g *Gateway) Logs(ctx context.Context, id string, tail int) (string, error) {
	info, err := g.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", classify(fmt.Errorf("inspect container %q: %w", id, err))
	}

	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	}
	rc, err := g.cli.ContainerLogs(ctx, id, opts)
	if err != nil {
		return "", classify(fmt.Errorf("logs for container %q: %w", id, err))
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if info.Config == nil || !info.Config.Tty {
		data = stripLogFraming(data)
	}
	return string(bytes.TrimSpace(data)), nil
}

// stripLogFraming removes the engine's stream multiplexing: each chunk is an
// 8-byte header (stream byte, 3 zero bytes, big-endian payload size) followed
// by the payload.
func stripLogFraming(data []byte) []byte {
	var clean []byte
	for len(data) >= 8 {
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]
		if size > len(data) {
			size = len(data)
		}
		clean = append(clean, data[:size]...)
		data = data[size:]
	}
	return clean
}

// classify maps a docker error onto the failure taxonomy. Connection-level
// failures and NotFound are recognized; everything else is an engine API
// error surfaced verbatim.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case client.IsErrConnectionFailed(err):
		return microiaas.Classify(microiaas.ErrEngineUnreachable, err)
	case errdefs.IsNotFound(err):
		return microiaas.Classify(microiaas.ErrNotFound, err)
	default:
		return microiaas.Classify(microiaas.ErrEngineAPI, err)
	}
}
