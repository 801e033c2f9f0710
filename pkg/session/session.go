// Package session runs the push-to-talk turn cycle.
//
// An Orchestrator owns one conversation. Start begins recording; Stop
// runs the pipeline on the caller's goroutine:
//
//	primary transcription -> (fallback) engine transcription
//	    -> completion -> synthesis -> playback -> history
//
// Every state change is published to OnChange observers as a Snapshot.
// Reset abandons an in-flight turn and returns the session to idle.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-voiceloop/pkg/history"
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	State       State            `json:"state"`
	Transcript  string           `json:"transcript"`
	Reply       string           `json:"reply"`
	Error       string           `json:"error,omitempty"`
	Times       *ProcessingTimes `json:"times,omitempty"`
	Initialized bool             `json:"initialized"`
}

// Orchestrator sequences capture, transcription, completion, synthesis
// and playback for one conversation.
type Orchestrator struct {
	deps    Deps
	cfg     Config
	logger  *slog.Logger
	metrics *MetricsCollector

	mu           sync.Mutex
	state        State
	transcript   string
	reply        string
	errMsg       string
	times        *ProcessingTimes
	initialized bool
	pending     string // operation running outside mu: initialize, start or reset

	run     uint64             // incremented whenever a turn is abandoned or begins
	cancel  context.CancelFunc // cancels the in-flight pipeline
	running chan struct{}      // closed when the in-flight pipeline returns
	seq     uint64

	notifyMu  sync.Mutex
	delivered uint64
	observers []func(Snapshot)
}

// New creates an orchestrator in the idle, uninitialized state.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "session.orchestrator"),
		metrics: NewMetricsCollector(cfg.MetricsWindow),
		state:   StateIdle,
	}, nil
}

// OnChange registers an observer called after every state change.
// Observers run on the goroutine that made the change and must not block.
func (o *Orchestrator) OnChange(fn func(Snapshot)) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	o.observers = append(o.observers, fn)
}

// Snapshot returns the current session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Metrics summarizes recent turns.
func (o *Orchestrator) Metrics() Metrics {
	return o.metrics.Summary()
}

// Initialize acquires the capture device and starts both engines in
// parallel. It is legal only while idle and not yet initialized. A
// failure moves the session to error; Reset then allows a retry.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.initialized {
		o.mu.Unlock()
		return nil
	}
	if o.state != StateIdle || o.pending != "" {
		st := o.state
		o.mu.Unlock()
		return invalidState("initialize", st)
	}
	o.pending = "initialize"
	o.mu.Unlock()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.deps.Capture.Initialize(gctx)
	})
	g.Go(func() error {
		return o.deps.Engines.Initialize(gctx)
	})
	err := g.Wait()

	o.mu.Lock()
	o.pending = ""
	if err != nil {
		o.errMsg = err.Error()
		o.transitionLocked(StateError)
		snap, seq := o.publishLocked()
		o.mu.Unlock()
		o.logger.Error("initialization failed", "error", err)
		o.emit(snap, seq)
		return err
	}
	o.initialized = true
	o.transitionLocked(StateIdle)
	snap, seq := o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("session ready", "init_ms", time.Since(start).Milliseconds())
	o.emit(snap, seq)
	return nil
}

// Start begins recording a new utterance. It is legal only while idle
// after a successful Initialize; otherwise nothing changes.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if !o.initialized {
		o.mu.Unlock()
		return ErrNotInitialized
	}
	if o.state != StateIdle || o.pending != "" {
		st := o.state
		o.mu.Unlock()
		return invalidState("start", st)
	}
	o.pending = "start"
	o.transcript = ""
	o.reply = ""
	o.errMsg = ""
	o.times = nil
	o.mu.Unlock()

	err := o.deps.Capture.StartCapture(ctx)

	o.mu.Lock()
	o.pending = ""
	if err != nil {
		o.errMsg = err.Error()
		o.transitionLocked(StateError)
		o.metrics.RecordFailure("capture")
		snap, seq := o.publishLocked()
		o.mu.Unlock()
		o.logger.Error("capture start failed", "error", err)
		o.emit(snap, seq)
		return &StageError{Stage: "capture", Err: err}
	}

	o.run++
	o.transitionLocked(StateRecording)
	snap, seq := o.publishLocked()
	o.mu.Unlock()

	o.logger.Debug("recording")
	o.emit(snap, seq)
	return nil
}

// Stop ends recording and runs the pipeline to completion. It is legal
// only while recording. A stage failure moves the session to error,
// keeps whatever transcript or reply was already produced, and is
// returned. ErrAborted is returned when Reset abandoned the turn.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateRecording || o.pending != "" {
		st := o.state
		o.mu.Unlock()
		return invalidState("stop", st)
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.run++
	run := o.run
	o.cancel = cancel
	o.running = make(chan struct{})
	running := o.running
	o.transitionLocked(StateProcessing)
	snap, seq := o.publishLocked()
	o.mu.Unlock()

	o.emit(snap, seq)

	defer func() {
		cancel()
		o.mu.Lock()
		if o.run == run {
			o.cancel = nil
			o.running = nil
		}
		o.mu.Unlock()
		close(running)
	}()

	return o.pipeline(runCtx, run)
}

func (o *Orchestrator) pipeline(ctx context.Context, run uint64) error {
	start := time.Now()

	text, primary, transcriptionMs, err := o.transcribe(ctx)
	if err != nil {
		return o.fail(run, "transcription", err)
	}
	text = strings.TrimSpace(text)
	if !o.update(run, func() { o.transcript = text }) {
		return ErrAborted
	}

	if text == "" {
		o.metrics.RecordEmpty()
		o.logger.Info("empty transcript, nothing to answer")
		if !o.finish(run) {
			return ErrAborted
		}
		return nil
	}
	o.logger.Info("transcribed",
		"text", text,
		"primary", primary,
		"transcription_ms", transcriptionMs,
	)

	t := time.Now()
	reply, err := o.deps.Completion.Complete(ctx, text)
	if err != nil {
		return o.fail(run, "completion", err)
	}
	completionMs := millis(time.Since(t))
	if !o.update(run, func() { o.reply = reply }) {
		return ErrAborted
	}
	o.logger.Info("completed", "completion_ms", completionMs)

	t = time.Now()
	syn, err := o.deps.Engines.Synthesize(ctx, reply)
	if err != nil {
		return o.fail(run, "synthesis", err)
	}
	synthesisMs := millis(time.Since(t))
	o.logger.Info("synthesized",
		"synthesis_ms", synthesisMs,
		"samples", len(syn.Samples),
		"sample_rate", syn.SampleRate,
	)

	times := ProcessingTimes{
		TranscriptionMs: transcriptionMs,
		CompletionMs:    completionMs,
		SynthesisMs:     synthesisMs,
		TotalMs:         millis(time.Since(start)),
	}

	ok := o.update(run, func() {
		o.times = &times
		o.transitionLocked(StateSpeaking)
	})
	if !ok {
		return ErrAborted
	}
	o.logger.Info("turn complete",
		"transcription_ms", times.TranscriptionMs,
		"completion_ms", times.CompletionMs,
		"synthesis_ms", times.SynthesisMs,
		"total_ms", times.TotalMs,
	)

	if err := o.play(ctx, syn.Samples, syn.SampleRate); err != nil {
		return o.fail(run, "playback", err)
	}

	o.persist(ctx, history.NewRecord(text, reply, times.TotalMs))
	o.metrics.RecordTurn(times, primary)

	if !o.finish(run) {
		return ErrAborted
	}
	return nil
}

// transcribe tries the on-device recognizer first and falls back to the
// transcription engine with the encoded recording. The capture is always
// stopped. The returned duration covers only the path that produced the
// transcript.
func (o *Orchestrator) transcribe(ctx context.Context) (string, bool, float64, error) {
	start := time.Now()
	text, err := o.deps.Capture.TranscribePrimary(ctx)
	if err == nil {
		elapsed := millis(time.Since(start))
		if _, serr := o.deps.Capture.StopCapture(ctx); serr != nil {
			o.logger.Warn("capture stop failed", "error", serr)
		}
		return text, true, elapsed, nil
	}
	o.logger.Debug("primary transcription failed, using engine", "error", err)

	start = time.Now()
	rec, err := o.deps.Capture.StopCapture(ctx)
	if err != nil {
		return "", false, 0, err
	}
	if len(rec.Data) == 0 {
		o.logger.Debug("nothing was captured")
		return "", false, millis(time.Since(start)), nil
	}
	res, err := o.deps.Engines.Transcribe(ctx, rec.Data, rec.MIMEType)
	if err != nil {
		return "", false, 0, err
	}
	return res.Text, false, millis(time.Since(start)), nil
}

// play blocks until the buffer has been played or ctx ends.
func (o *Orchestrator) play(ctx context.Context, samples []float32, sampleRate int) error {
	done, err := o.deps.Playback.Play(ctx, samples, sampleRate)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		o.deps.Playback.Stop()
		return ctx.Err()
	}
}

// persist writes the turn to the history sink. Failures are logged only.
func (o *Orchestrator) persist(ctx context.Context, rec history.Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.HistoryTimeout)
	defer cancel()
	if err := o.deps.History.Save(ctx, rec); err != nil {
		o.logger.Warn("history write failed", "error", err)
	}
}

// fail records err against the current turn and moves to error. A turn
// abandoned by Reset reports ErrAborted instead.
func (o *Orchestrator) fail(run uint64, stage string, err error) error {
	o.mu.Lock()
	if o.run != run {
		o.mu.Unlock()
		return ErrAborted
	}
	o.errMsg = err.Error()
	o.transitionLocked(StateError)
	snap, seq := o.publishLocked()
	o.mu.Unlock()

	o.metrics.RecordFailure(stage)
	o.logger.Error("turn failed", "stage", stage, "error", err)
	o.emit(snap, seq)
	return &StageError{Stage: stage, Err: err}
}

// finish returns the current turn to idle.
func (o *Orchestrator) finish(run uint64) bool {
	return o.update(run, func() { o.transitionLocked(StateIdle) })
}

// update applies fn if run is still the current turn and publishes the
// result. It reports false for an abandoned turn.
func (o *Orchestrator) update(run uint64, fn func()) bool {
	o.mu.Lock()
	if o.run != run {
		o.mu.Unlock()
		return false
	}
	fn()
	snap, seq := o.publishLocked()
	o.mu.Unlock()
	o.emit(snap, seq)
	return true
}

// Reset clears an error, or abandons the turn in flight, and returns to
// idle. Transcript and reply are kept. Resetting an idle session is
// ErrInvalidState. Other operations are rejected until Reset returns.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	from := o.state
	if from == StateIdle || o.pending != "" {
		o.mu.Unlock()
		return invalidState("reset", from)
	}
	o.pending = "reset"
	o.run++
	cancel, running := o.cancel, o.running
	o.cancel, o.running = nil, nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if running != nil {
		<-running
	}
	if from == StateRecording {
		if _, err := o.deps.Capture.StopCapture(context.Background()); err != nil {
			o.logger.Debug("discarding recording failed", "error", err)
		}
	}

	o.mu.Lock()
	o.pending = ""
	o.errMsg = ""
	o.transitionLocked(StateIdle)
	snap, seq := o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("session reset", "from", from)
	o.emit(snap, seq)
	return nil
}

// NewChat forgets the conversation and clears the displayed turn. It is
// not allowed while a turn is in flight.
func (o *Orchestrator) NewChat() error {
	o.mu.Lock()
	if o.state.Busy() || o.pending != "" {
		st := o.state
		o.mu.Unlock()
		return invalidState("new chat", st)
	}
	o.deps.Completion.Reset()
	o.transcript = ""
	o.reply = ""
	o.times = nil
	snap, seq := o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("conversation cleared")
	o.emit(snap, seq)
	return nil
}

// Close abandons any turn and releases capture, engines and history.
func (o *Orchestrator) Close() error {
	if o.Snapshot().State.Busy() {
		o.Reset()
	}
	o.deps.Playback.Stop()
	return errors.Join(
		o.deps.Capture.Dispose(),
		o.deps.Engines.Close(),
		o.deps.History.Close(),
	)
}

// transitionLocked moves to the next state. Illegal edges are rejected
// and logged. Must be called with o.mu held.
func (o *Orchestrator) transitionLocked(to State) bool {
	if !CanTransition(o.state, to) {
		o.logger.Error("illegal state transition", "from", o.state, "to", to)
		return false
	}
	o.state = to
	return true
}

// publishLocked snapshots the state for emit. Must be called with o.mu held.
func (o *Orchestrator) publishLocked() (Snapshot, uint64) {
	o.seq++
	return o.snapshotLocked(), o.seq
}

// snapshotLocked must be called with o.mu held.
func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		State:       o.state,
		Transcript:  o.transcript,
		Reply:       o.reply,
		Error:       o.errMsg,
		Initialized: o.initialized,
	}
	if o.times != nil {
		t := *o.times
		s.Times = &t
	}
	return s
}

// emit delivers snap to observers. Snapshots overtaken by a newer one
// are dropped so observers never see state go backwards.
func (o *Orchestrator) emit(snap Snapshot, seq uint64) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if seq <= o.delivered {
		return
	}
	o.delivered = seq
	for _, fn := range o.observers {
		fn(snap)
	}
}
