package backend

import (
	"sync"

	"github.com/gophoto/darkroom"
)

// Backend name constants.
const (
	// BackendWebGPU is the explicit command-buffer backend.
	BackendWebGPU = "webgpu"
	// BackendGL is the immediate bind-and-draw backend.
	BackendGL = "gl"
)

// Factory creates an uninitialized backend instance.
type Factory func() Renderer

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Probe order: WebGPU first, GL as fallback.
	priority = []string{BackendWebGPU, BackendGL}
)

// Register registers a backend factory under a name. Called from init()
// functions in the backend implementation packages.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = f
}

// Unregister removes a backend from the registry. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// Get returns an uninitialized instance of a named backend, or nil if it
// is not registered.
func Get(name string) Renderer {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := backends[name]
	if !ok {
		return nil
	}
	return f()
}

// Probe instantiates and initializes backends in priority order and
// returns the first that succeeds. Selection happens once at startup and
// is never re-probed mid-session. With no arguments the default priority
// is used; otherwise the given names are tried in order.
//
// Returns ErrNoBackend when every candidate fails; the last failure is
// attached for diagnosis.
func Probe(names ...string) (Renderer, error) {
	if len(names) == 0 {
		registryMu.RLock()
		names = append(names, priority...)
		registryMu.RUnlock()
	}

	var lastErr error
	for _, name := range names {
		r := Get(name)
		if r == nil {
			continue
		}
		if err := r.Init(); err != nil {
			darkroom.Logger().Warn("backend init failed, trying next candidate",
				"backend", name, "error", err)
			lastErr = err
			continue
		}
		darkroom.Logger().Info("backend selected", "backend", name)
		return r, nil
	}

	if lastErr != nil {
		return nil, &probeError{err: lastErr}
	}
	return nil, ErrNoBackend
}

// probeError wraps the last init failure while still matching
// ErrNoBackend in errors.Is checks.
type probeError struct {
	err error
}

func (e *probeError) Error() string {
	return ErrNoBackend.Error() + ": " + e.err.Error()
}

func (e *probeError) Unwrap() error { return e.err }

func (e *probeError) Is(target error) bool { return target == ErrNoBackend }
