package challenge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/internal/classifier"
)

// FrameSource produces webcam frames. Capture mechanics are a collaborator
// concern; the sampler only needs JPEG bytes.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// EmotionClassifier labels one frame with a single emotion.
type EmotionClassifier interface {
	Predict(ctx context.Context, frame []byte) (string, error)
}

// Detection is one positive laugh detection handed to the session.
type Detection struct {
	Frame        []byte
	DetectedTime int64 // seconds since session start
}

// Sampler runs the fixed-period capture/classify loop. Detections are
// opportunistic: any capture or classifier failure is swallowed and the
// loop simply waits for the next tick.
type Sampler struct {
	source     FrameSource
	classifier EmotionClassifier

	interval time.Duration
	window   time.Duration

	inflight Guard
	cooldown Cooldown

	onDetection func(Detection)
}

// NewSampler creates a sampler which calls onDetection for every laugh it
// detects outside the cooldown window.
func NewSampler(source FrameSource, cls EmotionClassifier, interval, cooldownWindow time.Duration, onDetection func(Detection)) *Sampler {
	return &Sampler{
		source:      source,
		classifier:  cls,
		interval:    interval,
		window:      cooldownWindow,
		onDetection: onDetection,
	}
}

// Run samples until ctx is cancelled. The session start time anchors
// detection timestamps.
func (s *Sampler) Run(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// At most one classify call in flight; extra ticks are
			// dropped, not queued.
			if !s.inflight.TryAcquire() {
				continue
			}
			go s.sample(ctx, start)
		}
	}
}

func (s *Sampler) sample(ctx context.Context, start time.Time) {
	defer s.inflight.Release()

	frame, err := s.source.Capture(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("frame capture failed")
		return
	}

	emotion, err := s.classifier.Predict(ctx, frame)
	if err != nil {
		// No detection, no lives change.
		log.Debug().Err(err).Msg("classify failed")
		return
	}
	if emotion != classifier.EmotionLaugh {
		return
	}

	// The cooldown gates the "is this a new laugh" decision only; sampling
	// itself continued throughout the window.
	if !s.cooldown.TryArm(s.window) {
		return
	}

	s.onDetection(Detection{
		Frame:        frame,
		DetectedTime: int64(time.Since(start) / time.Second),
	})
}
