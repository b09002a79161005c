package agents

import (
	"context"
	"errors"
	"sync"

	"research-assistant/internal/clients"
	"research-assistant/internal/llm"
)

// fakeProvider returns queued responses in order; the last response
// repeats once the queue is exhausted.
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	lastOpts  llm.CompletionOptions
	lastMsgs  []llm.Message
}

func (f *fakeProvider) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOpts = opts
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no response queued")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeArxivClient serves canned papers or a fixed error.
type fakeArxivClient struct {
	papers    []clients.ArxivPaper
	err       error
	lastQuery string
}

func (f *fakeArxivClient) Query(ctx context.Context, agentName, query string, maxResults int) ([]clients.ArxivPaper, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.papers, nil
}

// fakeTavilyClient serves canned web results.
type fakeTavilyClient struct {
	response   *clients.TavilyResponse
	err        error
	configured bool
	lastQuery  string
}

func (f *fakeTavilyClient) Search(ctx context.Context, agentName, query string, maxResults int) (*clients.TavilyResponse, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeTavilyClient) Configured() bool { return f.configured }
