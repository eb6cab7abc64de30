// Package metrics emits DogStatsD metrics for the phone.
package metrics

import (
	"fmt"
	"sync"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

// Recorder receives counters and gauges.
type Recorder interface {
	Incr(name string, tags ...string)
	Gauge(name string, value float64, tags ...string)
	Close() error
}

// Statsd sends metrics to a DogStatsD agent.
type Statsd struct {
	client *statsd.Client
}

// NewStatsd connects to the agent at addr ("host:port").
func NewStatsd(addr, namespace string, tags []string) (*Statsd, error) {
	client, err := statsd.New(addr, statsd.WithNamespace(namespace), statsd.WithTags(tags))
	if err != nil {
		return nil, fmt.Errorf("create dogstatsd client: %w", err)
	}

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")

	return &Statsd{client: client}, nil
}

// Incr increments a counter by one.
func (s *Statsd) Incr(name string, tags ...string) {
	if err := s.client.Incr(name, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit counter metric")
	}
}

// Gauge records a value.
func (s *Statsd) Gauge(name string, value float64, tags ...string) {
	if err := s.client.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

// Close flushes and closes the client.
func (s *Statsd) Close() error {
	return s.client.Close()
}

// Noop discards everything.
type Noop struct{}

func (Noop) Incr(string, ...string)           {}
func (Noop) Gauge(string, float64, ...string) {}
func (Noop) Close() error                     { return nil }

// Memory keeps metrics in memory, for tests and the status page.
// It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int
	gauges   map[string]float64
}

// NewMemory creates an empty Memory recorder.
func NewMemory() *Memory {
	return &Memory{counters: map[string]int{}, gauges: map[string]float64{}}
}

// Incr counts name; tags are ignored.
func (m *Memory) Incr(name string, _ ...string) {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

// Gauge stores the latest value of name; tags are ignored.
func (m *Memory) Gauge(name string, value float64, _ ...string) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

// Count returns the counter for name.
func (m *Memory) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Value returns the last gauge value for name.
func (m *Memory) Value(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.gauges[name]
	return v, ok
}

func (m *Memory) Close() error { return nil }
