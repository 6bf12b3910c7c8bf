package plugins

import (
	"context"
	"sync/atomic"
	"time"
)

// MockPlugin implements Plugin for testing, grounded on
// pkg/collectors.MockCollector's functional-options configuration style.
type MockPlugin struct {
	name     string
	timeout  time.Duration
	priority int
	applies  bool

	payload   string
	err       error
	callCount atomic.Int64

	// CollectFunc, if set, overrides the default Collect behavior --
	// used by tests to simulate a plugin that sleeps past its timeout
	// (spec §8's "gatherer absorption" property).
	CollectFunc func(ctx context.Context, cwd string) (string, error)
}

// MockPluginOption configures a MockPlugin.
type MockPluginOption func(*MockPlugin)

func WithPayload(payload string) MockPluginOption {
	return func(m *MockPlugin) { m.payload = payload }
}

func WithPluginError(err error) MockPluginOption {
	return func(m *MockPlugin) { m.err = err }
}

func WithApplies(applies bool) MockPluginOption {
	return func(m *MockPlugin) { m.applies = applies }
}

func WithCollectFunc(fn func(ctx context.Context, cwd string) (string, error)) MockPluginOption {
	return func(m *MockPlugin) { m.CollectFunc = fn }
}

// NewMockPlugin builds a MockPlugin that applies unconditionally unless
// overridden with WithApplies(false).
func NewMockPlugin(name string, timeout time.Duration, priority int, opts ...MockPluginOption) *MockPlugin {
	m := &MockPlugin{name: name, timeout: timeout, priority: priority, applies: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockPlugin) Name() string          { return m.name }
func (m *MockPlugin) Timeout() time.Duration { return m.timeout }
func (m *MockPlugin) Priority() int          { return m.priority }

func (m *MockPlugin) Applies(cwd, buffer string) bool { return m.applies }

func (m *MockPlugin) Collect(ctx context.Context, cwd string) (string, error) {
	m.callCount.Add(1)
	if m.CollectFunc != nil {
		return m.CollectFunc(ctx, cwd)
	}
	return m.payload, m.err
}

// CallCount returns how many times Collect has been invoked.
func (m *MockPlugin) CallCount() int64 {
	return m.callCount.Load()
}
