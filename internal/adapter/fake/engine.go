package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"microiaas"
)

type engineContainer struct {
	id      string
	image   string
	running bool
	created time.Time
	logs    string
}

// Engine is an in-memory container engine double. Containers are keyed by
// name; lookups also resolve by engine id. Per-method error hooks let tests
// inject failures without replacing the whole fake.
type Engine struct {
	CallRecorder
	mu         sync.Mutex
	nextID     int
	containers map[string]*engineContainer
	images     map[string]bool
	stats      map[string]microiaas.RawStats

	ListErr      func(ctx context.Context, includeStopped bool) error
	GetErr       func(ctx context.Context, id string) error
	CreateErr    func(ctx context.Context, spec microiaas.CreateSpec) error
	StartErr     func(ctx context.Context, id string) error
	StopErr      func(ctx context.Context, id string) error
	RestartErr   func(ctx context.Context, id string) error
	RemoveErr    func(ctx context.Context, id string, force bool) error
	PullImageErr func(ctx context.Context, image string) error
	RawStatsErr  func(ctx context.Context, id string) error
	LogsErr      func(ctx context.Context, id string, tail int) error
}

// NewEngine creates an empty Engine with the given images already present
// locally.
func NewEngine(images ...string) *Engine {
	e := &Engine{
		containers: make(map[string]*engineContainer),
		images:     make(map[string]bool),
		stats:      make(map[string]microiaas.RawStats),
	}
	for _, img := range images {
		e.images[img] = true
	}
	return e
}

// AddContainer seeds a container without going through Create.
func (e *Engine) AddContainer(name, image string, running bool) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := fmt.Sprintf("ctr-%04d", e.nextID)
	e.containers[name] = &engineContainer{id: id, image: image, running: running}
	return id
}

// SetRawStats sets the sample RawStats will return for a container name.
func (e *Engine) SetRawStats(name string, raw microiaas.RawStats) {
	e.mu.Lock()
	e.stats[name] = raw
	e.mu.Unlock()
}

// SetLogs sets the log text Logs will return for a container name.
func (e *Engine) SetLogs(name, text string) {
	e.mu.Lock()
	if c, ok := e.containers[name]; ok {
		c.logs = text
	}
	e.mu.Unlock()
}

// HasImage reports whether the image is present locally.
func (e *Engine) HasImage(img string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.images[img]
}

func (e *Engine) resolve(id string) (string, *engineContainer, bool) {
	if c, ok := e.containers[id]; ok {
		return id, c, true
	}
	for name, c := range e.containers {
		if c.id == id {
			return name, c, true
		}
	}
	return "", nil, false
}

func notFound(id string) error {
	return microiaas.Classify(microiaas.ErrNotFound, fmt.Errorf("no such container: %s", id))
}

func (e *Engine) List(ctx context.Context, includeStopped bool) ([]microiaas.Container, error) {
	e.record("List", includeStopped)
	if e.ListErr != nil {
		if err := e.ListErr(ctx, includeStopped); err != nil {
			return nil, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []microiaas.Container
	for name, c := range e.containers {
		if !includeStopped && !c.running {
			continue
		}
		out = append(out, e.view(name, c))
	}
	return out, nil
}

func (e *Engine) view(name string, c *engineContainer) microiaas.Container {
	state := "exited"
	if c.running {
		state = "running"
	}
	return microiaas.Container{
		ID:      c.id,
		Name:    name,
		Image:   c.image,
		State:   state,
		Running: c.running,
		Created: c.created,
	}
}

func (e *Engine) Get(ctx context.Context, id string) (microiaas.Container, error) {
	e.record("Get", id)
	if e.GetErr != nil {
		if err := e.GetErr(ctx, id); err != nil {
			return microiaas.Container{}, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	name, c, ok := e.resolve(id)
	if !ok {
		return microiaas.Container{}, notFound(id)
	}
	return e.view(name, c), nil
}

func (e *Engine) Create(ctx context.Context, spec microiaas.CreateSpec) (string, error) {
	e.record("Create", spec)
	if e.CreateErr != nil {
		if err := e.CreateErr(ctx, spec); err != nil {
			return "", err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.containers[spec.Name]; ok {
		return "", microiaas.Classify(microiaas.ErrEngineAPI,
			fmt.Errorf("conflict: container name %q is already in use", spec.Name))
	}
	if !e.images[spec.Image] {
		return "", microiaas.Classify(microiaas.ErrImageUnavailable,
			fmt.Errorf("no such image: %s", spec.Image))
	}
	e.nextID++
	id := fmt.Sprintf("ctr-%04d", e.nextID)
	e.containers[spec.Name] = &engineContainer{id: id, image: spec.Image}
	return id, nil
}

func (e *Engine) Start(ctx context.Context, id string) error {
	e.record("Start", id)
	if e.StartErr != nil {
		if err := e.StartErr(ctx, id); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	_, c, ok := e.resolve(id)
	if !ok {
		return notFound(id)
	}
	c.running = true
	return nil
}

func (e *Engine) Stop(ctx context.Context, id string) error {
	e.record("Stop", id)
	if e.StopErr != nil {
		if err := e.StopErr(ctx, id); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	_, c, ok := e.resolve(id)
	if !ok {
		return notFound(id)
	}
	c.running = false
	return nil
}

func (e *Engine) Restart(ctx context.Context, id string) error {
	e.record("Restart", id)
	if e.RestartErr != nil {
		if err := e.RestartErr(ctx, id); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	_, c, ok := e.resolve(id)
	if !ok {
		return notFound(id)
	}
	c.running = true
	return nil
}

func (e *Engine) Remove(ctx context.Context, id string, force bool) error {
	e.record("Remove", id, force)
	if e.RemoveErr != nil {
		if err := e.RemoveErr(ctx, id, force); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	name, c, ok := e.resolve(id)
	if !ok {
		return notFound(id)
	}
	if c.running && !force {
		return microiaas.Classify(microiaas.ErrEngineAPI,
			fmt.Errorf("cannot remove running container %q without force", name))
	}
	delete(e.containers, name)
	return nil
}

func (e *Engine) PullImage(ctx context.Context, img string) error {
	e.record("PullImage", img)
	if e.PullImageErr != nil {
		if err := e.PullImageErr(ctx, img); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.images[img] = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) RawStats(ctx context.Context, id string) (microiaas.RawStats, error) {
	e.record("RawStats", id)
	if e.RawStatsErr != nil {
		if err := e.RawStatsErr(ctx, id); err != nil {
			return microiaas.RawStats{}, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	name, _, ok := e.resolve(id)
	if !ok {
		return microiaas.RawStats{}, notFound(id)
	}
	return e.stats[name], nil
}

func (e *Engine) Logs(ctx context.Context, id string, tail int) (string, error) {
	e.record("Logs", id, tail)
	if e.LogsErr != nil {
		if err := e.LogsErr(ctx, id, tail); err != nil {
			return "", err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	_, c, ok := e.resolve(id)
	if !ok {
		return "", notFound(id)
	}
	return c.logs, nil
}
