package session

import (
	"fmt"
	"sync"
	"time"
)

// ProcessingTimes are the per-stage latencies of one completed turn in
// milliseconds. TotalMs runs from the start of the pipeline to just
// before playback.
type ProcessingTimes struct {
	TranscriptionMs float64 `json:"transcription_ms"`
	CompletionMs    float64 `json:"completion_ms"`
	SynthesisMs     float64 `json:"synthesis_ms"`
	TotalMs         float64 `json:"total_ms"`
}

// String formats the timings for logs and the terminal UI.
func (p ProcessingTimes) String() string {
	return fmt.Sprintf("%s STT | %s LLM | %s TTS | %s TOTAL",
		formatMs(p.TranscriptionMs), formatMs(p.CompletionMs),
		formatMs(p.SynthesisMs), formatMs(p.TotalMs))
}

func formatMs(ms float64) string {
	if ms <= 0 {
		return "---ms"
	}
	return fmt.Sprintf("%.0fms", ms)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Turn is one completed pipeline run.
type Turn struct {
	Times   ProcessingTimes `json:"times"`
	Primary bool            `json:"primary"`
	At      time.Time       `json:"at"`
}

// Metrics summarizes recent turns.
type Metrics struct {
	Turns            int              `json:"turns"`
	PrimaryTurns     int              `json:"primary_turns"`
	EmptyTranscripts int              `json:"empty_transcripts"`
	Failures         map[string]int   `json:"failures"`
	Average          ProcessingTimes  `json:"average"`
	Last             *ProcessingTimes `json:"last,omitempty"`
}

// MetricsCollector keeps a bounded window of turns. It is goroutine-safe.
type MetricsCollector struct {
	mu       sync.Mutex
	window   int
	history  []Turn
	empty    int
	failures map[string]int
}

// NewMetricsCollector creates a collector averaging the last window turns.
func NewMetricsCollector(window int) *MetricsCollector {
	return &MetricsCollector{
		window:   window,
		history:  make([]Turn, 0, window),
		failures: make(map[string]int),
	}
}

// RecordTurn archives a completed turn.
func (m *MetricsCollector) RecordTurn(times ProcessingTimes, primary bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, Turn{Times: times, Primary: primary, At: time.Now()})
	if len(m.history) > m.window {
		m.history = m.history[1:]
	}
}

// RecordEmpty counts a turn that ended with no speech.
func (m *MetricsCollector) RecordEmpty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.empty++
}

// RecordFailure counts a turn that failed at stage.
func (m *MetricsCollector) RecordFailure(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[stage]++
}

// Turns returns a copy of the window.
func (m *MetricsCollector) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.history...)
}

// Summary averages the window.
func (m *MetricsCollector) Summary() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Metrics{
		Turns:            len(m.history),
		EmptyTranscripts: m.empty,
		Failures:         make(map[string]int, len(m.failures)),
	}
	for k, v := range m.failures {
		out.Failures[k] = v
	}
	if len(m.history) == 0 {
		return out
	}

	var sum ProcessingTimes
	for _, t := range m.history {
		sum.TranscriptionMs += t.Times.TranscriptionMs
		sum.CompletionMs += t.Times.CompletionMs
		sum.SynthesisMs += t.Times.SynthesisMs
		sum.TotalMs += t.Times.TotalMs
		if t.Primary {
			out.PrimaryTurns++
		}
	}
	n := float64(len(m.history))
	out.Average = ProcessingTimes{
		TranscriptionMs: sum.TranscriptionMs / n,
		CompletionMs:    sum.CompletionMs / n,
		SynthesisMs:     sum.SynthesisMs / n,
		TotalMs:         sum.TotalMs / n,
	}
	last := m.history[len(m.history)-1].Times
	out.Last = &last
	return out
}
