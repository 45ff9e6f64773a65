// Package coordinator serializes speech output so that utterances never talk
// over each other.
//
// Speak enqueues an utterance and returns immediately with a result channel;
// a single drain goroutine pops utterances in submission order, synthesizes
// each one through the gateway, plays it to completion through the audio
// sink, and then announces completion through the signal file protocol so the
// external dictation automation knows it may start listening.
//
// There is no cancellation and no retry: an enqueued utterance is attempted
// exactly once, and a failure settles only that utterance. Failover between
// synthesis backends, when configured, happens inside the gateway.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/MindSyncTech/talktocursor/internal/config"
	"github.com/MindSyncTech/talktocursor/internal/observe"
	"github.com/MindSyncTech/talktocursor/internal/signalfile"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// ErrEmptyText is returned by Speak when the text is empty or whitespace.
// The utterance is rejected synchronously and never enters the queue.
var ErrEmptyText = errors.New("coordinator: text must not be empty")

// ErrSynthesis wraps synthesis gateway failures in settled results.
var ErrSynthesis = errors.New("coordinator: synthesis failed")

// ErrPlayback wraps audio sink failures in settled results.
var ErrPlayback = errors.New("coordinator: playback failed")

// Listen outcomes.
const (
	// ListenTriggered means the listen signal was written for the external
	// automation process.
	ListenTriggered = "listening"

	// ListenDisabled means autoListen is off and no signal was written.
	ListenDisabled = "disabled"
)

// Sink plays a synthesized utterance. Play must block until the audio device
// has fully drained the buffer; the coordinator relies on that to guarantee
// utterances never overlap.
type Sink interface {
	Play(ctx context.Context, audio *tts.Audio) error
}

// SettingsSource yields the current shared settings snapshot. The coordinator
// reads one snapshot per utterance so web-UI edits take effect on the next
// speak without restart.
type SettingsSource interface {
	Current() *config.Settings
}

// StaticSettings is a SettingsSource that always returns the same snapshot.
// Useful in tests and when no settings watcher is running.
type StaticSettings config.Settings

// Current returns the fixed snapshot.
func (s StaticSettings) Current() *config.Settings {
	cp := config.Settings(s)
	return &cp
}

// VoiceResolver maps the configured voice string onto a backend voice ID.
type VoiceResolver interface {
	Resolve(ctx context.Context, query string) (string, error)
}

// Result is the settled outcome of one utterance.
type Result struct {
	// Text is the trimmed utterance text.
	Text string

	// Err is nil on success. On failure it wraps [ErrSynthesis] or
	// [ErrPlayback].
	Err error
}

// Message renders the success payload for the tool boundary.
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("Spoken: %q", r.Text)
}

// item is one queued utterance. done is buffered so the drain loop never
// blocks on a caller that stopped waiting. ctx is the caller's request
// context, carried for trace lineage only; it never gates synthesis or
// playback.
type item struct {
	text       string
	ctx        context.Context
	enqueuedAt time.Time
	done       chan Result
}

// Coordinator owns the speak queue and the signal files.
type Coordinator struct {
	synth    tts.Synthesizer
	sink     Sink
	signals  *signalfile.Writer
	settings SettingsSource
	resolver VoiceResolver
	metrics  *observe.Metrics
	log      *slog.Logger

	// provider labels utterance metrics; typically the primary backend name.
	provider string

	mu       sync.Mutex
	queue    []*item
	draining bool
}

// Option configures a [Coordinator].
type Option func(*Coordinator)

// WithVoiceResolver resolves the configured voice before each synthesis.
// Without one, the configured voice string is passed through as-is.
func WithVoiceResolver(r VoiceResolver) Option {
	return func(c *Coordinator) { c.resolver = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics overrides the package-default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithProviderLabel sets the provider attribute recorded on utterance
// metrics. Default: "gateway".
func WithProviderLabel(name string) Option {
	return func(c *Coordinator) {
		if name != "" {
			c.provider = name
		}
	}
}

// New creates a Coordinator. synth, sink, signals, and settings are required.
func New(synth tts.Synthesizer, sink Sink, signals *signalfile.Writer, settings SettingsSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		synth:    synth,
		sink:     sink,
		signals:  signals,
		settings: settings,
		metrics:  observe.DefaultMetrics(),
		log:      slog.Default(),
		provider: "gateway",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Speak enqueues text for synthesis and playback and returns a channel that
// settles with the utterance's outcome. The call returns immediately;
// utterances play in strict submission order.
//
// Empty or whitespace-only text is rejected with [ErrEmptyText] before
// anything is enqueued.
func (c *Coordinator) Speak(ctx context.Context, text string) (<-chan Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	it := &item{
		text:       text,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		done:       make(chan Result, 1),
	}

	c.mu.Lock()
	c.queue = append(c.queue, it)
	start := !c.draining
	if start {
		c.draining = true
	}
	depth := len(c.queue)
	c.mu.Unlock()

	c.metrics.QueueDepth.Add(ctx, 1)
	c.log.Debug("utterance enqueued", "chars", len(text), "depth", depth)

	if start {
		go c.drain()
	}
	return it.done, nil
}

// Listen asks the external automation process to start dictation. When
// autoListen is disabled in the settings it is a no-op and returns
// [ListenDisabled]; otherwise it writes a fresh listen signal and returns
// [ListenTriggered].
//
// Listen is independent of the speak queue and never waits for playback.
func (c *Coordinator) Listen(ctx context.Context) string {
	if !c.settings.Current().AutoListen {
		c.metrics.RecordListenRequest(ctx, "disabled")
		return ListenDisabled
	}
	if err := c.signals.ListenRequested(); err != nil {
		// Fire-and-forget: the mailbox has no delivery guarantee anyway.
		c.log.Warn("listen signal write failed", "error", err)
		c.metrics.RecordSignalWriteError(ctx, "listen-signal")
	}
	c.metrics.RecordListenRequest(ctx, "triggered")
	return ListenTriggered
}

// drain pops queued utterances in order until the queue empties, then clears
// the draining flag. Exactly one drain goroutine runs at a time.
func (c *Coordinator) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.mu.Unlock()
			return
		}
		it := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		it.done <- c.process(it)
		c.metrics.QueueDepth.Add(context.Background(), -1)
	}
}

// process runs one utterance through synthesis, playback, and the completion
// signal. A failure settles only this utterance; the drain loop continues
// with the next one.
func (c *Coordinator) process(it *item) Result {
	// The caller's context ends with its request; the utterance does not.
	// Only trace lineage carries over, so a tool call that stops waiting or
	// a web client that disconnects never cancels synthesis or playback.
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.SpanContextFromContext(it.ctx))
	ctx, span := observe.StartSpan(ctx, "coordinator.process")
	defer span.End()
	log := observe.Logger(ctx)

	c.metrics.QueueWait.Record(ctx, time.Since(it.enqueuedAt).Seconds())

	params := c.voiceParams(ctx)

	synthStart := time.Now()
	audio, err := c.synth.Synthesize(ctx, it.text, params)
	c.metrics.SynthesisDuration.Record(ctx, time.Since(synthStart).Seconds())
	if err != nil {
		c.metrics.RecordUtterance(ctx, c.provider, "error")
		c.metrics.RecordProviderError(ctx, c.provider)
		log.Error("synthesis failed", "error", err, "chars", len(it.text))
		return Result{Text: it.text, Err: fmt.Errorf("%w: %w", ErrSynthesis, err)}
	}

	playStart := time.Now()
	err = c.sink.Play(ctx, audio)
	c.metrics.PlaybackDuration.Record(ctx, time.Since(playStart).Seconds())
	if err != nil {
		c.metrics.RecordUtterance(ctx, c.provider, "error")
		log.Error("playback failed", "error", err)
		return Result{Text: it.text, Err: fmt.Errorf("%w: %w", ErrPlayback, err)}
	}

	// Fire-and-forget: a write failure must not fail an utterance that was
	// audibly spoken.
	if err := c.signals.PlaybackComplete(); err != nil {
		log.Warn("complete signal write failed", "error", err)
		c.metrics.RecordSignalWriteError(ctx, "tts-complete")
	}

	c.metrics.RecordUtterance(ctx, c.provider, "ok")
	log.Info("utterance spoken",
		"chars", len(it.text),
		"audio", audio.Duration().Round(time.Millisecond),
	)
	return Result{Text: it.text}
}

// voiceParams takes the per-utterance settings snapshot and resolves the
// configured voice when a resolver is wired.
func (c *Coordinator) voiceParams(ctx context.Context) tts.VoiceParams {
	params := c.settings.Current().VoiceParams()
	if c.resolver == nil || params.VoiceID == "" {
		return params
	}
	id, err := c.resolver.Resolve(ctx, params.VoiceID)
	if err != nil {
		// The backend stays the final authority on unknown IDs.
		c.log.Warn("voice resolution failed, using configured value", "error", err)
		return params
	}
	params.VoiceID = id
	return params
}
