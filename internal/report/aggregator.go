// Package report aggregates a session's laugh events into a report.
package report

import (
	"github.com/hmoon-dev/laughless/pkg/models"
)

// Aggregate computes a session report from its events. It is a pure
// function: the same event slice always yields an identical report, and it
// never mutates its input. Events must arrive in event-index order, which is
// how the store returns them.
func Aggregate(events []*models.LaughEvent) *models.Report {
	if len(events) == 0 {
		return emptyReport()
	}

	summaries := make([]string, 0, len(events))
	labels := make([]string, 0, len(events))
	tags := make([]string, 0, len(events))
	seenTags := make(map[string]struct{})

	for _, ev := range events {
		if ev.Summary != "" {
			summaries = append(summaries, ev.Summary)
		}
		// A label may be a single category or several; both shapes are
		// already flattened into FlexLabel.
		labels = append(labels, ev.Label...)
		for _, tag := range ev.Tags {
			if _, ok := seenTags[tag]; ok {
				continue
			}
			seenTags[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}

	histogram := make(map[string]int, len(models.CanonicalLabels))
	for _, canonical := range models.CanonicalLabels {
		histogram[canonical] = 0
	}
	for _, label := range labels {
		// Categories outside the canonical set are ignored, not errors.
		if _, ok := histogram[label]; ok {
			histogram[label]++
		}
	}

	nickname := events[0].Nickname
	if nickname == "" {
		nickname = models.AnonymousNickname
	}

	return &models.Report{
		Summaries:      summaries,
		Labels:         labels,
		Tags:           tags,
		LaughCount:     len(events),
		DominantLabel:  dominantLabel(histogram),
		LabelHistogram: histogram,
		Nickname:       nickname,
	}
}

// dominantLabel returns the canonical category with the highest count.
// Ties break toward the earlier category in canonical order, so the result
// is deterministic even when every count is zero.
func dominantLabel(histogram map[string]int) string {
	dominant := models.CanonicalLabels[0]
	for _, candidate := range models.CanonicalLabels[1:] {
		if histogram[candidate] > histogram[dominant] {
			dominant = candidate
		}
	}
	return dominant
}

// emptyReport is the fixed report of a session with no events.
func emptyReport() *models.Report {
	histogram := make(map[string]int, len(models.CanonicalLabels))
	for _, canonical := range models.CanonicalLabels {
		histogram[canonical] = 0
	}
	return &models.Report{
		Summaries:      []string{models.EmptyReportSummary},
		Labels:         []string{},
		Tags:           []string{},
		LaughCount:     0,
		DominantLabel:  models.CanonicalLabels[0],
		LabelHistogram: histogram,
		Nickname:       models.AnonymousNickname,
	}
}
