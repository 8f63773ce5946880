package ai

import (
	"context"
	"encoding/json"
)

// Request describes the source video handed to an enhancer.
type Request struct {
	VideoID  string
	Title    string
	Source   string // storage path of the uploaded media
	Duration float64
}

// Result is the artifact bundle produced by an enhancer. The structured
// payloads are owned by the provider; the pipeline persists them verbatim.
type Result struct {
	Transcript string
	AIScript   string
	Captions   json.RawMessage
	Cuts       json.RawMessage
	Voiceover  string // blob storage key
	ZoomPoints json.RawMessage
}

// Enhancer is the contract implemented by all AI enhancement providers.
type Enhancer interface {
	Enhance(ctx context.Context, req Request) (*Result, error)
}
