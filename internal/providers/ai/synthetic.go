package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BlobWriter persists opaque blobs and returns the canonical storage key.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Synthetic produces deterministic enhancement artifacts without calling an
// external model. It is used in development and whenever no enhancer
// endpoint is configured.
type Synthetic struct {
	blobs BlobWriter
}

func NewSynthetic(blobs BlobWriter) *Synthetic {
	return &Synthetic{blobs: blobs}
}

type cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type cut struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Reason string  `json:"reason"`
}

type zoomPoint struct {
	Timestamp float64 `json:"timestamp"`
	Scale     float64 `json:"scale"`
	Duration  float64 `json:"duration"`
}

func (s *Synthetic) Enhance(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled Clip"
	}
	title = cases.Title(language.English).String(title)

	duration := req.Duration
	if duration <= 0 {
		duration = 60
	}

	transcript := fmt.Sprintf(
		"Welcome to %s. In this video we walk through the highlights step by step, "+
			"pausing on the moments that matter most before wrapping up with a short summary.",
		title,
	)
	script := fmt.Sprintf(
		"HOOK: Open on the strongest moment of %s.\nBODY: Trim silences, keep the pace tight.\nOUTRO: End with a call to action.",
		title,
	)

	segments := int(math.Max(3, math.Min(8, duration/10)))
	segLen := duration / float64(segments)

	cues := make([]cue, 0, segments)
	for i := 0; i < segments; i++ {
		start := float64(i) * segLen
		cues = append(cues, cue{
			Start: round2(start),
			End:   round2(start + segLen),
			Text:  fmt.Sprintf("%s, part %d", title, i+1),
		})
	}

	cuts := []cut{
		{Start: 0, End: round2(segLen * 0.2), Reason: "dead air before intro"},
		{Start: round2(duration - segLen*0.15), End: round2(duration), Reason: "trailing silence"},
	}

	zooms := []zoomPoint{
		{Timestamp: round2(segLen), Scale: 1.4, Duration: 2.0},
		{Timestamp: round2(duration / 2), Scale: 1.2, Duration: 1.5},
	}

	captionsJSON, err := json.Marshal(cues)
	if err != nil {
		return nil, fmt.Errorf("synthetic: marshal captions: %w", err)
	}
	cutsJSON, err := json.Marshal(cuts)
	if err != nil {
		return nil, fmt.Errorf("synthetic: marshal cuts: %w", err)
	}
	zoomsJSON, err := json.Marshal(zooms)
	if err != nil {
		return nil, fmt.Errorf("synthetic: marshal zoom points: %w", err)
	}

	voiceoverKey := fmt.Sprintf("voiceovers/%s/voiceover.txt", req.VideoID)
	if s.blobs != nil {
		key, err := s.blobs.Write(ctx, voiceoverKey, []byte(script))
		if err != nil {
			return nil, fmt.Errorf("synthetic: persist voiceover: %w", err)
		}
		voiceoverKey = key
	}

	return &Result{
		Transcript: transcript,
		AIScript:   script,
		Captions:   captionsJSON,
		Cuts:       cutsJSON,
		Voiceover:  voiceoverKey,
		ZoomPoints: zoomsJSON,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ Enhancer = (*Synthetic)(nil)
