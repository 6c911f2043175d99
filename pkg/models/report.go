package models

// CanonicalLabels is the fixed reaction-category set, in tie-break order.
// Aggregation counts only these; the first entry wins ties and is the
// dominant label of an empty histogram.
var CanonicalLabels = []string{"병맛", "슬랩스틱", "팩트폭격", "공감", "상황개그"}

const (
	// AnonymousNickname is reported when a session has no events or its
	// events carry no nickname.
	AnonymousNickname = "anonymous"

	// EmptyReportSummary is the canned summary of a session with no events.
	EmptyReportSummary = "아직 웃음 기록이 없습니다."
)

// Report is the aggregated view of one session's laugh events. It is
// computed on demand and never persisted; recomputing over the same events
// yields an identical report.
type Report struct {
	Summaries      []string       `json:"summary"`
	Labels         []string       `json:"labels"`
	Tags           []string       `json:"tags"`
	LaughCount     int            `json:"laughCount"`
	DominantLabel  string         `json:"dominantLabel"`
	LabelHistogram map[string]int `json:"labelCount"`
	Nickname       string         `json:"nickname"`
}

// Video is one ranked result from the video-search provider.
type Video struct {
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	URL       string `json:"video_url"`
	Thumbnail string `json:"thumbnail"`
}

// RecommendationSection is one event index's batch of recommended videos.
type RecommendationSection struct {
	EventIndex int     `json:"index"`
	Query      string  `json:"query"`
	Videos     []Video `json:"videos"`
}

// FinalEvent is one leaderboard row: who lost their last life, and when.
type FinalEvent struct {
	Nickname     string `json:"nickname"`
	DetectedTime int64  `json:"detected_time"`
}
