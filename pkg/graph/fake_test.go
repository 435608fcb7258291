package graph

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/kgtext/backend/pkg/ai"
	"github.com/kgtext/backend/pkg/common"
)

// fakeAIClient answers every request with the same JSON document after
// failing the first failures calls.
type fakeAIClient struct {
	ai.MetricsRecorder

	mu       sync.Mutex
	response string
	failures int
	calls    int
	prompts  []string
}

func (f *fakeAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	fail := f.calls <= f.failures
	f.mu.Unlock()

	if fail {
		return errors.New("model unavailable")
	}
	return ai.UnmarshalFlexible(f.response, out)
}

type fakeExtractor struct {
	entities  []common.Entity
	relations []common.Relationship
	err       error
	calls     int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]common.Entity, []common.Relationship, error) {
	f.calls++
	return f.entities, f.relations, f.err
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
