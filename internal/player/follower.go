package player

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/grafov/m3u8"

	"github.com/dkozyrev/veloview/internal/logging"
)

const (
	// followerFrameInterval is the fixed cadence of position callbacks,
	// roughly 30 fps.
	followerFrameInterval = 33 * time.Millisecond
	// followerFailBudget is how many consecutive playlist fetch failures
	// are absorbed before a network-class fatal error is raised.
	followerFailBudget = 3
)

// HLS is the library-based adaptive engine: a headless follower that keeps
// decoding the live media playlist and advances a playback clock against
// wall time. It produces position callbacks for the overlay render loop and
// classified fatal errors for the controller's recovery logic.
type HLS struct {
	fetch  FetchFunc
	logger *slog.Logger

	// test seams
	frameInterval   time.Duration
	refreshInterval time.Duration
}

func NewHLS(fetch FetchFunc) *HLS {
	return &HLS{
		fetch:         fetch,
		logger:        logging.GetLogger("player"),
		frameInterval: followerFrameInterval,
	}
}

func (h *HLS) Name() string { return "hls-follower" }

func (h *HLS) CanPlay(mimeType string) bool {
	return mimeType == MimeHLS || mimeType == MimeHLSAlt
}

// Open fetches and decodes the playlist once, then starts the follower
// loop. An unreachable or undecodable playlist fails the open itself; later
// failures surface through cb.OnError.
func (h *HLS) Open(playlistURL string, cb Callbacks) (Playback, error) {
	ctx, cancel := context.WithCancel(context.Background())

	f := &follower{
		engine:  h,
		url:     playlistURL,
		cb:      cb,
		ctx:     ctx,
		cancel:  cancel,
		refresh: make(chan struct{}, 1),
		started: time.Now(),
	}

	media, err := f.loadPlaylist(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open playlist: %w", err)
	}
	f.applyPlaylist(media)

	f.wg.Add(1)
	go f.run()
	return f, nil
}

type follower struct {
	engine *HLS
	url    string
	cb     Callbacks

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	refresh chan struct{}

	mu        sync.Mutex
	started   time.Time
	duration  float64
	closed    bool
	target    time.Duration
	failCount int
	frameCb   func(t float64)
}

// Position is the wall-clock time elapsed since playback started.
func (f *follower) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Since(f.started).Seconds()
}

// SetFrameCallback implements FrameNotifier.
func (f *follower) SetFrameCallback(fn func(t float64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frameCb = fn
}

// ReloadSource resets the failure budget and forces an immediate playlist
// refresh. Used by the controller after a network-class fatal error.
func (f *follower) ReloadSource() error {
	f.mu.Lock()
	f.failCount = 0
	f.mu.Unlock()
	f.kickRefresh()
	return nil
}

// RecoverMedia re-syncs against a fresh playlist after a media-class fatal
// error. A headless follower carries no decoder state, so recovery is a
// forced refresh.
func (f *follower) RecoverMedia() error {
	f.kickRefresh()
	return nil
}

func (f *follower) Close() error {
	f.cancel()
	f.wg.Wait()
	return nil
}

func (f *follower) kickRefresh() {
	select {
	case f.refresh <- struct{}{}:
	default:
	}
}

func (f *follower) run() {
	defer f.wg.Done()

	frames := time.NewTicker(f.engine.frameInterval)
	defer frames.Stop()

	refresh := time.NewTimer(f.refreshInterval())
	defer refresh.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return

		case <-frames.C:
			pos := f.Position()
			f.mu.Lock()
			frameCb := f.frameCb
			ended := f.closed && f.duration > 0 && pos >= f.duration
			f.mu.Unlock()

			if frameCb != nil {
				frameCb(pos)
			}
			if f.cb.OnTime != nil {
				f.cb.OnTime(pos)
			}
			if ended {
				if f.cb.OnEnded != nil {
					f.cb.OnEnded()
				}
				return
			}

		case <-refresh.C:
			f.refreshPlaylist()
			refresh.Reset(f.refreshInterval())

		case <-f.refresh:
			f.refreshPlaylist()
			refresh.Reset(f.refreshInterval())
		}
	}
}

// refreshInterval is half the playlist target duration, the usual live HLS
// reload cadence, bounded below to avoid hammering the origin.
func (f *follower) refreshInterval() time.Duration {
	if f.engine.refreshInterval > 0 {
		return f.engine.refreshInterval
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.target > 0 {
		iv := f.target / 2
		if iv < 250*time.Millisecond {
			iv = 250 * time.Millisecond
		}
		return iv
	}
	return 500 * time.Millisecond
}

func (f *follower) refreshPlaylist() {
	media, err := f.loadPlaylist(f.ctx)
	if err != nil {
		f.handleRefreshError(err)
		return
	}
	f.mu.Lock()
	f.failCount = 0
	f.mu.Unlock()
	f.applyPlaylist(media)
}

func (f *follower) handleRefreshError(err error) {
	if f.ctx.Err() != nil {
		return
	}

	var fatal *FatalError
	switch e := err.(type) {
	case *decodeError:
		fatal = &FatalError{Class: ClassMedia, Err: e}
	default:
		f.mu.Lock()
		f.failCount++
		count := f.failCount
		f.mu.Unlock()

		f.engine.logger.Warn("playlist refresh failed", "attempt", count, "error", err)
		if count < followerFailBudget {
			return
		}
		fatal = &FatalError{Class: ClassNetwork, Err: err}
	}

	if f.cb.OnError != nil {
		f.cb.OnError(fatal)
	}
}

// loadPlaylist fetches and decodes the playlist, following a master
// playlist's first variant when the backend publishes one.
func (f *follower) loadPlaylist(ctx context.Context) (*m3u8.MediaPlaylist, error) {
	body, err := f.engine.fetch(ctx, f.url)
	if err != nil {
		return nil, err
	}

	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		return nil, &decodeError{err: err}
	}

	switch listType {
	case m3u8.MEDIA:
		return pl.(*m3u8.MediaPlaylist), nil
	case m3u8.MASTER:
		master := pl.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 {
			return nil, &decodeError{err: fmt.Errorf("master playlist has no variants")}
		}
		f.url = resolveURL(f.url, master.Variants[0].URI)
		return f.loadPlaylist(ctx)
	default:
		return nil, &decodeError{err: fmt.Errorf("unrecognized playlist type")}
	}
}

func (f *follower) applyPlaylist(media *m3u8.MediaPlaylist) {
	var duration float64
	for _, seg := range media.Segments {
		if seg != nil {
			duration += seg.Duration
		}
	}

	f.mu.Lock()
	f.duration = duration
	f.closed = media.Closed
	f.target = time.Duration(media.TargetDuration * float64(time.Second))
	f.mu.Unlock()
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return fmt.Sprintf("decode playlist: %v", e.err) }
func (e *decodeError) Unwrap() error { return e.err }

// resolveURL resolves a possibly relative variant URI against the playlist
// URL it came from.
func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
