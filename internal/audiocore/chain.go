package audiocore

import (
	"log/slog"
	"sync"

	"github.com/tphakala/audiocore/internal/logging"
)

// Chain is the plugin-chain's read-copy-update list: writers (control
// threads) take the exclusive lock via Add/RemoveAt/RestoreSession; the render
// thread only ever takes the reader lock via TryProcess, never blocking.
// Grounded on the teacher's processorChainImpl RWMutex usage, generalized
// from a blocking RLock to TryRLock-only render access per spec.md 4.7/5.
type Chain struct {
	mu         sync.RWMutex
	processors []Processor
	logger     *slog.Logger

	obsMu     sync.Mutex
	observers []func()
}

// NewChain creates an empty plugin chain.
func NewChain() *Chain {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		logger: logger.With("component", "plugin_chain"),
	}
}

// OnConfigurationChanged registers fn to run after every future Add/RemoveAt
// completes (spec.md 4.1/6's "configuration_changed" notification, grounded
// on the original DSPPipeline's `emit configurationChanged()` signal).
// Control-thread only; fn always runs outside the writer lock, so it may
// safely call back into Chain.
func (c *Chain) OnConfigurationChanged(fn func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Chain) notifyConfigurationChanged() {
	c.obsMu.Lock()
	observers := append([]func(){}, c.observers...)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// Add appends a processor to the chain. Exclusive lock; control-thread only.
func (c *Chain) Add(p Processor) {
	c.mu.Lock()
	c.processors = append(c.processors, p)
	n := len(c.processors)
	c.mu.Unlock()
	c.logger.Info("processor added", "name", p.Name(), "chain_length", n)
	c.notifyConfigurationChanged()
}

// RemoveAt removes the processor at index. Exclusive lock; control-thread
// only. The removed processor's teardown (if any) is the caller's
// responsibility and should happen outside this call so it never runs
// under the lock.
func (c *Chain) RemoveAt(index int) (Processor, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.processors) {
		c.mu.Unlock()
		return nil, ErrProcessorNotFound
	}
	removed := c.processors[index]
	c.processors = append(c.processors[:index:index], c.processors[index+1:]...)
	remaining := len(c.processors)
	c.mu.Unlock()

	c.logger.Info("processor removed", "name", removed.Name(), "remaining", remaining)
	c.notifyConfigurationChanged()
	return removed, nil
}

// ProcessorSnapshot is one processor's persisted session entry: its stable
// name, whether it was enabled, and its opaque SaveState blob. Order within
// a []ProcessorSnapshot is the chain order (spec.md 6's "Persisted state":
// order, per-processor state, per-processor enabled flag).
type ProcessorSnapshot struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	State   []byte `json:"state,omitempty"`
}

// SaveSession captures the chain's current order plus each processor's
// enabled flag and serialized state. Control-thread only.
func (c *Chain) SaveSession() []ProcessorSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ProcessorSnapshot, len(c.processors))
	for i, p := range c.processors {
		out[i] = ProcessorSnapshot{
			Name:    p.Name(),
			Enabled: p.IsEnabled(),
			State:   p.SaveState(),
		}
	}
	return out
}

// RestoreSession reorders the chain to match snapshot's order and applies
// each entry's saved enabled flag and state, matching processors already in
// the chain by Name(). An entry naming a processor no longer in the chain
// is skipped; a chain processor absent from snapshot is appended after the
// restored ones, keeping its prior relative order. Fires
// configuration_changed once, after the reorder completes.
func (c *Chain) RestoreSession(snapshot []ProcessorSnapshot) {
	c.mu.Lock()
	byName := make(map[string]Processor, len(c.processors))
	for _, p := range c.processors {
		byName[p.Name()] = p
	}
	reordered := make([]Processor, 0, len(c.processors))
	seen := make(map[string]bool, len(snapshot))
	for _, snap := range snapshot {
		p, ok := byName[snap.Name]
		if !ok {
			continue
		}
		p.SetEnabled(snap.Enabled)
		p.RestoreState(snap.State)
		reordered = append(reordered, p)
		seen[snap.Name] = true
	}
	for _, p := range c.processors {
		if !seen[p.Name()] {
			reordered = append(reordered, p)
		}
	}
	c.processors = reordered
	n := len(c.processors)
	c.mu.Unlock()

	c.logger.Info("session restored", "chain_length", n)
	c.notifyConfigurationChanged()
}

// Prepare forwards a format renegotiation to every processor currently in
// the chain (spec.md 6's Engine.Prepare). Control-thread only, called while
// audio is stopped.
func (c *Chain) Prepare(sampleRate float64, channels int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.processors {
		p.Prepare(sampleRate, channels)
	}
}

// Count returns the current number of processors. Exclusive-safe via
// reader lock; called from control threads, never the render thread (the
// render thread must never block).
func (c *Chain) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.processors)
}

// Processors returns a snapshot copy of the chain, oldest-first.
func (c *Chain) Processors() []Processor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Processor, len(c.processors))
	copy(out, c.processors)
	return out
}

// TryProcess runs buf through every enabled processor in the chain. It
// attempts a non-blocking reader lock; on failure it skips the entire
// plugin sub-chain for this buffer and returns false, matching spec.md's
// "silencing one buffer's plugin output is acceptable" policy. A panicking
// processor does not abort the chain: the buffer is left however that
// processor left it and processing continues with the next one.
func (c *Chain) TryProcess(buf []float32, frames, channels int) (ran bool) {
	if !c.mu.TryRLock() {
		return false
	}
	defer c.mu.RUnlock()

	for _, p := range c.processors {
		if !p.IsEnabled() {
			continue
		}
		runProcessorSafely(p, buf, frames, channels)
	}
	return true
}

// runProcessorSafely calls p.Process, recovering from a panic so one
// misbehaving plugin never brings down the render thread. Per spec.md 4.1's
// failure semantics: the pipeline continues with whatever the failing
// processor left in the buffer.
func runProcessorSafely(p Processor, buf []float32, frames, channels int) {
	defer func() {
		if r := recover(); r != nil {
			// render thread never logs synchronously; a control-thread
			// poller can surface this via an atomic counter in a future
			// revision. For now the recover itself is the containment.
			_ = r
		}
	}()
	p.Process(buf, frames, channels)
}
