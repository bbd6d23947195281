package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leca/scene-archive/internal/model"
)

// Payload is a sync request body: {"scenes": [...], "dry_run": bool}.
type Payload struct {
	Scenes []model.SceneDescriptor `json:"scenes"`
	DryRun bool                    `json:"dry_run"`
}

// DecodePayload reads a payload object, or a bare array of scenes as
// written by the management system's export.
func DecodePayload(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &model.ValidationError{Field: "scenes", Reason: "payload is empty"}
	}

	p := &Payload{}
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &p.Scenes); err != nil {
			return nil, &model.ValidationError{Field: "scenes", Reason: err.Error()}
		}
	case '{':
		if err := json.Unmarshal(data, p); err != nil {
			return nil, &model.ValidationError{Field: "scenes", Reason: err.Error()}
		}
	default:
		return nil, &model.ValidationError{Field: "scenes", Reason: "expected a JSON object or array"}
	}
	if p.Scenes == nil {
		p.Scenes = []model.SceneDescriptor{}
	}
	return p, nil
}

// Chunks splits scenes into batches of at most size. A size of zero or
// less yields one batch.
func Chunks(scenes []model.SceneDescriptor, size int) [][]model.SceneDescriptor {
	if size <= 0 || len(scenes) <= size {
		return [][]model.SceneDescriptor{scenes}
	}
	chunks := make([][]model.SceneDescriptor, 0, (len(scenes)+size-1)/size)
	for start := 0; start < len(scenes); start += size {
		end := min(start+size, len(scenes))
		chunks = append(chunks, scenes[start:end])
	}
	return chunks
}
