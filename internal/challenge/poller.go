package challenge

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// RecommendationFetcher fetches the current recommendation sections.
type RecommendationFetcher interface {
	Recommendations(ctx context.Context, sessionID string) ([]models.RecommendationSection, error)
}

// Poller polls the recommendation endpoint on a fixed interval, merging new
// sections into its accumulated list by event index. The server never
// signals completion, so the poller runs until its context is cancelled —
// the cancellation handle is the view lifetime.
type Poller struct {
	fetcher   RecommendationFetcher
	sessionID string
	interval  time.Duration

	sections map[int]models.RecommendationSection
}

// NewPoller creates a poller for one session.
func NewPoller(fetcher RecommendationFetcher, sessionID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		fetcher:   fetcher,
		sessionID: sessionID,
		interval:  interval,
		sections:  make(map[int]models.RecommendationSection),
	}
}

// Run polls until ctx is cancelled, invoking onUpdate with the merged,
// index-ordered section list after every poll that added something new.
// Poll failures are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context, onUpdate func([]models.RecommendationSection)) {
	// Immediate first poll, then the fixed interval.
	if p.poll(ctx) {
		onUpdate(p.Sections())
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.poll(ctx) {
				onUpdate(p.Sections())
			}
		}
	}
}

// poll fetches once and merges; it reports whether anything new arrived.
func (p *Poller) poll(ctx context.Context) bool {
	sections, err := p.fetcher.Recommendations(ctx, p.sessionID)
	if err != nil {
		log.Debug().Err(err).Str("sessionId", p.sessionID).Msg("recommendation poll failed")
		return false
	}

	added := false
	for _, sec := range sections {
		// First arrival wins; repeated polls never duplicate a section.
		if _, ok := p.sections[sec.EventIndex]; ok {
			continue
		}
		p.sections[sec.EventIndex] = sec
		added = true
	}
	return added
}

// Sections returns the accumulated sections ordered by event index.
func (p *Poller) Sections() []models.RecommendationSection {
	out := make([]models.RecommendationSection, 0, len(p.sections))
	for _, sec := range p.sections {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventIndex < out[j].EventIndex })
	return out
}
