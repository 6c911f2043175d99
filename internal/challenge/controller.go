package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// State is one step of the session state machine. The path is strictly
// forward with no re-entry; a new challenge needs a new Controller.
type State string

const (
	StateNickname      State = "nickname"
	StateStart         State = "start"
	StateRunning       State = "running"
	StateUploadSuccess State = "upload-success"
	StateUploadFail    State = "upload-fail"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == StateUploadSuccess || s == StateUploadFail
}

// Uploader stores captured frames somewhere public and returns their URLs.
// Transport and bucket management are a collaborator concern.
type Uploader interface {
	Upload(ctx context.Context, sessionID string, frames [][]byte) ([]string, error)
}

// Finisher triggers the server-side finalize pass.
type Finisher interface {
	Finish(ctx context.Context, sessionID string, urls []string) (*FinishResult, error)
}

// DetectionRecorder persists one life-loss event.
type DetectionRecorder interface {
	Record(livesBefore int, d Detection)
}

// Config holds the game-loop timings for one session.
type Config struct {
	Duration       time.Duration
	SampleInterval time.Duration
	Cooldown       time.Duration
}

// Controller drives one challenge session: it arms the sampler, counts
// lives and the countdown, and runs the finalize sequence exactly once when
// the session reaches a terminal state.
type Controller struct {
	cfg      Config
	source   FrameSource
	cls      EmotionClassifier
	uploader Uploader
	finisher Finisher

	sessionID string

	mu       sync.Mutex
	state    State
	nickname string
	lives    int
	frames   [][]byte
	started  time.Time

	recorder DetectionRecorder

	finishOnce sync.Once
	cancelRun  context.CancelFunc
	done       chan struct{}
}

// NewController allocates a fresh session with a random id and full lives.
func NewController(cfg Config, source FrameSource, cls EmotionClassifier, uploader Uploader, finisher Finisher) *Controller {
	return &Controller{
		cfg:       cfg,
		source:    source,
		cls:       cls,
		uploader:  uploader,
		finisher:  finisher,
		sessionID: uuid.NewString(),
		state:     StateNickname,
		lives:     models.MaxLives,
		done:      make(chan struct{}),
	}
}

// SessionID returns the session's client-generated id.
func (c *Controller) SessionID() string { return c.sessionID }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lives returns the remaining life count.
func (c *Controller) Lives() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lives
}

// Done is closed when the session reaches a terminal state and the finalize
// sequence has completed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// SetNickname records the nickname and advances nickname → start.
func (c *Controller) SetNickname(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNickname {
		return fmt.Errorf("nickname can only be set once, state is %q", c.state)
	}
	if name == "" {
		return fmt.Errorf("nickname must not be empty")
	}
	c.nickname = name
	c.state = StateStart
	return nil
}

// Start advances start → running: it starts the countdown and arms the
// sampler, and a recorder bound to this session. It returns immediately;
// the session finishes on its own when the countdown expires or lives run
// out.
func (c *Controller) Start(ctx context.Context, poster EventPoster) error {
	c.mu.Lock()
	if c.state != StateStart {
		c.mu.Unlock()
		return fmt.Errorf("cannot start from state %q", c.state)
	}
	c.state = StateRunning
	c.started = time.Now()
	c.recorder = NewEventRecorder(poster, c.sessionID, c.nickname)
	start := c.started
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancelRun = cancel

	sampler := NewSampler(c.source, c.cls, c.cfg.SampleInterval, c.cfg.Cooldown, c.onDetection)
	go sampler.Run(runCtx, start)

	go func() {
		select {
		case <-runCtx.Done():
		case <-time.After(c.cfg.Duration):
			// Countdown expired with lives to spare.
			c.finish(StateUploadSuccess)
		}
	}()

	log.Info().
		Str("sessionId", c.sessionID).
		Str("nickname", c.nickname).
		Dur("duration", c.cfg.Duration).
		Msg("challenge started")
	return nil
}

// onDetection handles one positive laugh detection: one life down, frame
// kept for upload, event posted fire-and-forget. The last life also ends
// the session.
func (c *Controller) onDetection(d Detection) {
	c.mu.Lock()
	if c.state != StateRunning || c.lives == 0 {
		c.mu.Unlock()
		return
	}

	livesBefore := c.lives
	c.lives--
	if len(c.frames) < models.MaxLives && len(d.Frame) > 0 {
		c.frames = append(c.frames, d.Frame)
	}
	recorder := c.recorder
	lives := c.lives
	c.mu.Unlock()

	log.Info().
		Str("sessionId", c.sessionID).
		Int("livesLeft", lives).
		Int64("detectedTime", d.DetectedTime).
		Msg("laugh detected")

	recorder.Record(livesBefore, d)

	if lives == 0 {
		go c.finish(StateUploadFail)
	}
}

// finish runs the finalize sequence exactly once: stop sampling, upload the
// captured frames, trigger the server finalize pass, enter the terminal
// state. Upload and finalize failures are logged but do not block the
// transition — the result view must render regardless.
func (c *Controller) finish(outcome State) {
	c.finishOnce.Do(func() {
		if c.cancelRun != nil {
			c.cancelRun()
		}

		c.mu.Lock()
		frames := c.frames
		c.state = outcome
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		var urls []string
		if c.uploader != nil && len(frames) > 0 {
			var err error
			urls, err = c.uploader.Upload(ctx, c.sessionID, frames)
			if err != nil {
				log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("capture upload failed")
				urls = nil
			}
		}

		if _, err := c.finisher.Finish(ctx, c.sessionID, urls); err != nil {
			log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("finalize notify failed")
		}

		log.Info().
			Str("sessionId", c.sessionID).
			Str("outcome", string(outcome)).
			Msg("challenge finished")

		close(c.done)
	})
}
