package ai

import (
	"context"
	"sync"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	errs  []error
	vec   []float32
}

func (f *fakeProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.vec, nil
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Model() string   { return "fake-model" }
func (f *fakeProvider) Dimensions() int { return len(f.vec) }

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
