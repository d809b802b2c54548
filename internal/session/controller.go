// Package session implements the stream readiness controller: it starts the
// backend pipeline, polls the published playlist until it is playable,
// hands off to a playback engine and recovers from playback errors where
// the error class allows it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/events"
	"github.com/dkozyrev/veloview/internal/hls"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/dkozyrev/veloview/internal/metrics"
	"github.com/dkozyrev/veloview/internal/player"
)

// ErrEmptyInput rejects a start with no input URL before any request is
// sent.
var ErrEmptyInput = errors.New("input URL is empty")

// ErrUnsupported means no configured playback engine claims the stream's
// media type. Terminal for the attempt, not fatal to the controller.
var ErrUnsupported = errors.New("no playback engine supports the stream")

// Config carries the readiness tuning. Zero values fall back to defaults.
type Config struct {
	MinSegments   int
	PollInterval  time.Duration
	StartTimeout  time.Duration
	ReloadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinSegments:   2,
		PollInterval:  500 * time.Millisecond,
		StartTimeout:  20 * time.Second,
		ReloadTimeout: 25 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinSegments <= 0 {
		c.MinSegments = d.MinSegments
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = d.StartTimeout
	}
	if c.ReloadTimeout <= 0 {
		c.ReloadTimeout = d.ReloadTimeout
	}
	return c
}

// ControllerOptions configure NewController.
type ControllerOptions struct {
	Backend *backend.Client
	Engines []player.Engine
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Config  Config
}

// Controller is the stream readiness state machine. All user-initiated
// operations take a fresh generation token; an in-flight wait loop that
// observes a newer token abandons its remaining side effects, so at most
// one waiting operation is ever eligible to mutate controller state.
type Controller struct {
	backend *backend.Client
	engines []player.Engine
	bus     *events.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger
	tokens  TokenSource

	mu         sync.Mutex
	cfg        Config
	state      State
	detail     string
	hlsURL     string
	segsFound  int
	playback   player.Playback
	engineName string

	// clock seams for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(opts *ControllerOptions) *Controller {
	return &Controller{
		backend: opts.Backend,
		engines: opts.Engines,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		logger:  logging.GetLogger("session"),
		cfg:     opts.Config.withDefaults(),
		state:   StateIdle,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Start creates or replaces the backend pipeline for inputURL, waits for
// its playlist to become playable and hands off to playback. It blocks
// until a terminal outcome; a concurrent Start/Stop/Reload supersedes it
// through the generation token.
func (c *Controller) Start(ctx context.Context, inputURL string) (Outcome, error) {
	inputURL = strings.TrimSpace(inputURL)
	if inputURL == "" {
		return OutcomeError, ErrEmptyInput
	}

	tok := c.tokens.Next()
	c.setState(tok, StateStarting, "")

	status, err := c.backend.StartStream(ctx, inputURL)
	if err != nil {
		detail := "stream start request failed"
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			detail = apiErr.Detail
		}
		c.logger.Error("stream start failed", "input_url", inputURL, "error", err)
		c.setState(tok, StateError, detail)
		c.countOutcome(OutcomeError)
		return OutcomeError, err
	}

	if status.HLSURL == "" {
		err := fmt.Errorf("backend accepted %q but returned no playlist URL", inputURL)
		c.logger.Error("stream start incomplete", "error", err)
		c.setState(tok, StateError, "backend returned no playlist URL")
		c.countOutcome(OutcomeError)
		return OutcomeError, err
	}

	c.mu.Lock()
	if c.tokens.Live(tok) {
		c.hlsURL = status.HLSURL
	}
	c.mu.Unlock()

	return c.awaitAndPlay(ctx, tok, status.HLSURL, c.config().StartTimeout)
}

// Stop begins a new operation (lazily cancelling any in-flight wait),
// requests pipeline teardown, tears the player down best-effort and
// returns the controller to idle.
func (c *Controller) Stop(ctx context.Context) error {
	tok := c.tokens.Next()

	if _, err := c.backend.StopStream(ctx); err != nil {
		c.logger.Error("stream stop request failed", "error", err)
	}
	c.teardown()
	c.setState(tok, StateIdle, "")
	return nil
}

// Reload tears down the current player, refetches status and replays the
// readiness wait against the reported playlist URL. Without an active
// playlist it reports an error with no further backend contact.
func (c *Controller) Reload(ctx context.Context) (Outcome, error) {
	tok := c.tokens.Next()
	c.teardown()
	c.setState(tok, StateStarting, "reloading")

	status, err := c.backend.StreamStatus(ctx)
	if err != nil {
		c.logger.Error("status request failed", "error", err)
		c.setState(tok, StateError, "status request failed")
		c.countOutcome(OutcomeError)
		return OutcomeError, err
	}
	if status.HLSURL == "" {
		err := errors.New("no active stream to reload")
		c.setState(tok, StateError, err.Error())
		c.countOutcome(OutcomeError)
		return OutcomeError, err
	}

	c.mu.Lock()
	if c.tokens.Live(tok) {
		c.hlsURL = status.HLSURL
	}
	c.mu.Unlock()

	return c.awaitAndPlay(ctx, tok, status.HLSURL, c.config().ReloadTimeout)
}

// awaitAndPlay is the readiness wait loop. A failed playlist fetch counts
// as zero segments for that attempt; only the token going stale, the
// timeout budget or enough segments end the loop.
func (c *Controller) awaitAndPlay(ctx context.Context, tok Token, url string, budget time.Duration) (Outcome, error) {
	cfg := c.config()
	if !c.setState(tok, StateWaiting, fmt.Sprintf("0/%d segments", cfg.MinSegments)) {
		return OutcomeCancelled, nil
	}

	start := c.now()
	attempt := 0
	for {
		if err := c.sleep(ctx, cfg.PollInterval); err != nil {
			c.setState(tok, StateCancelled, "context cancelled")
			c.countOutcome(OutcomeCancelled)
			return OutcomeCancelled, nil
		}
		if !c.tokens.Live(tok) {
			c.countOutcome(OutcomeCancelled)
			return OutcomeCancelled, nil
		}

		attempt++
		found := 0
		if body, err := c.backend.FetchPlaylist(ctx, url); err != nil {
			c.logger.Debug("playlist fetch failed", "attempt", attempt, "error", err)
		} else {
			found = hls.CountSegments(string(body))
		}
		if c.metrics != nil {
			c.metrics.PollAttempts.Inc()
		}

		if !c.updateProgress(tok, found, cfg.MinSegments, attempt) {
			c.countOutcome(OutcomeCancelled)
			return OutcomeCancelled, nil
		}

		if found >= cfg.MinSegments {
			if c.metrics != nil {
				c.metrics.ReadinessWait.Observe(c.now().Sub(start).Seconds())
			}
			return c.handoff(tok, url)
		}

		if c.now().Sub(start) >= budget {
			c.logger.Warn("readiness wait timed out",
				"segments", found, "need", cfg.MinSegments, "budget", budget)
			c.setState(tok, StateTimedOut, fmt.Sprintf("timed out with %d/%d segments", found, cfg.MinSegments))
			c.countOutcome(OutcomeTimedOut)
			return OutcomeTimedOut, nil
		}
	}
}

// handoff hands the playlist URL to the first engine claiming HLS support.
func (c *Controller) handoff(tok Token, url string) (Outcome, error) {
	if !c.setState(tok, StateReady, "") {
		c.countOutcome(OutcomeCancelled)
		return OutcomeCancelled, nil
	}

	engine := player.Select(c.engines, player.MimeHLS)
	if engine == nil {
		c.setState(tok, StateError, "stream playback not supported")
		c.countOutcome(OutcomeError)
		return OutcomeError, ErrUnsupported
	}

	pb, err := engine.Open(url, player.Callbacks{
		OnError: func(err error) { c.handlePlaybackError(tok, err) },
		OnEnded: func() { c.logger.Info("playback ended") },
	})
	if err != nil {
		c.logger.Error("player attach failed", "engine", engine.Name(), "error", err)
		c.setState(tok, StateError, "player attach failed")
		c.countOutcome(OutcomeError)
		return OutcomeError, err
	}

	c.mu.Lock()
	if !c.tokens.Live(tok) {
		c.mu.Unlock()
		closeQuietly(pb, c.logger)
		c.countOutcome(OutcomeCancelled)
		return OutcomeCancelled, nil
	}
	c.playback = pb
	c.engineName = engine.Name()
	c.mu.Unlock()

	c.setState(tok, StatePlaying, "")
	c.countOutcome(OutcomePlaying)
	c.logger.Info("playback started", "engine", engine.Name(), "hls_url", url)
	return OutcomePlaying, nil
}

// handlePlaybackError applies the recovery policy: non-fatal errors are
// logged only; network-class fatal errors reload the source, media-class
// ones run decoder recovery, anything else tears the session down.
func (c *Controller) handlePlaybackError(tok Token, err error) {
	if !c.tokens.Live(tok) {
		return
	}

	var fatal *player.FatalError
	if !errors.As(err, &fatal) {
		c.logger.Warn("playback error", "error", err)
		c.publish(events.PlaybackErrorEvent{Class: string(player.ClassOther), Fatal: false, Detail: err.Error()})
		return
	}

	c.publish(events.PlaybackErrorEvent{Class: string(fatal.Class), Fatal: true, Detail: fatal.Error()})

	pb := c.Playback()
	switch fatal.Class {
	case player.ClassNetwork:
		c.logger.Warn("fatal network playback error, reloading source", "error", fatal.Err)
		if pb != nil {
			if rerr := pb.ReloadSource(); rerr != nil {
				c.logger.Error("source reload failed", "error", rerr)
			}
		}
	case player.ClassMedia:
		c.logger.Warn("fatal media playback error, attempting recovery", "error", fatal.Err)
		if pb != nil {
			if rerr := pb.RecoverMedia(); rerr != nil {
				c.logger.Error("media recovery failed", "error", rerr)
			}
		}
	default:
		c.logger.Error("unrecoverable playback error, stopping", "error", fatal.Err)
		// Stop closes the player, which waits for the engine goroutine that
		// delivered this callback, so it must not run on this goroutine.
		go func() { _ = c.Stop(context.Background()) }()
	}
}

// WatchStatus polls the backend status on a fixed cadence for passive
// display, independent of the readiness wait. Blocks until ctx is done.
func (c *Controller) WatchStatus(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := c.backend.StreamStatus(ctx)
			if err != nil {
				c.logger.Debug("status poll failed", "error", err)
				continue
			}
			ev := events.StatusPolledEvent{
				Running:   status.Running,
				HLSURL:    status.HLSURL,
				LastCount: status.LastCount,
				FramesOut: status.FramesOut,
			}
			if status.InputURL != nil {
				ev.InputURL = *status.InputURL
			}
			if status.Error != nil {
				ev.Error = *status.Error
			}
			c.publish(ev)
		}
	}
}

// Playback returns the attached playback session, or nil.
func (c *Controller) Playback() player.Playback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback
}

// Snapshot returns the console-facing view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:         c.state,
		Detail:        c.detail,
		HLSURL:        c.hlsURL,
		SegmentsFound: c.segsFound,
		SegmentsNeed:  c.cfg.MinSegments,
		Engine:        c.engineName,
	}
}

// SetTuning applies new readiness tuning; in-flight waits pick up the poll
// interval and segment threshold on their next iteration.
func (c *Controller) SetTuning(cfg Config) {
	cfg = cfg.withDefaults()
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.logger.Info("readiness tuning updated",
		"min_segments", cfg.MinSegments, "poll_interval", cfg.PollInterval)
}

func (c *Controller) config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// teardown is the scoped player cleanup: it always runs to completion and
// individual failures are logged, never propagated.
func (c *Controller) teardown() {
	c.mu.Lock()
	pb := c.playback
	c.playback = nil
	c.engineName = ""
	c.hlsURL = ""
	c.segsFound = 0
	c.mu.Unlock()

	if pb != nil {
		closeQuietly(pb, c.logger)
	}
}

// setState transitions the controller if tok is still the newest
// operation. Returns false when the operation has been superseded.
func (c *Controller) setState(tok Token, state State, detail string) bool {
	c.mu.Lock()
	if !c.tokens.Live(tok) {
		c.mu.Unlock()
		return false
	}
	c.state = state
	c.detail = detail
	hlsURL := c.hlsURL
	c.mu.Unlock()

	c.logger.Debug("state changed", "state", state, "detail", detail)
	c.publish(events.StateChangedEvent{
		State:     string(state),
		Detail:    detail,
		HLSURL:    hlsURL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return true
}

func (c *Controller) updateProgress(tok Token, found, need, attempt int) bool {
	c.mu.Lock()
	if !c.tokens.Live(tok) {
		c.mu.Unlock()
		return false
	}
	c.segsFound = found
	c.detail = fmt.Sprintf("%d/%d segments", found, need)
	c.mu.Unlock()

	c.publish(events.ReadinessProgressEvent{SegmentsFound: found, SegmentsNeed: need, Attempt: attempt})
	return true
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Controller) countOutcome(o Outcome) {
	if c.metrics != nil {
		c.metrics.ReadinessOutcomes.WithLabelValues(string(o)).Inc()
	}
}

func closeQuietly(pb player.Playback, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("player teardown panic", "panic", r)
		}
	}()
	if err := pb.Close(); err != nil {
		logger.Warn("player teardown error", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
