package agents_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/agents/provider"
	"github.com/madhatter5501/catalyst/internal/store"
	"github.com/stretchr/testify/require"
)

// stubProvider returns replies in order, one per CreateMessage call, so
// a test can script an initial bad response followed by a corrected one
// for the §4.6 one-retry-on-SchemaViolation path.
type stubProvider struct {
	replies   []string
	errs      []error
	calls     int
	available bool
}

func (s *stubProvider) CreateMessage(ctx context.Context, req *provider.MessageRequest) (*provider.MessageResponse, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return nil, err
	}
	content := ""
	if i < len(s.replies) {
		content = s.replies[i]
	} else if len(s.replies) > 0 {
		content = s.replies[len(s.replies)-1]
	}
	return &provider.MessageResponse{Content: content}, nil
}

func (s *stubProvider) Name() string                     { return "stub" }
func (s *stubProvider) Available() bool                  { return s.available }
func (s *stubProvider) GetUsage() provider.TokenUsage     { return provider.TokenUsage{} }
func (s *stubProvider) ResetUsage()                       {}

type fakeFactory struct {
	p provider.Provider
}

func (f fakeFactory) GetProvider(name string) (provider.Provider, error) { return f.p, nil }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalyst.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestRegistry(t *testing.T, p provider.Provider) *agents.Registry {
	t.Helper()
	st := newTestStore(t)
	return agents.NewRegistry(st, fakeFactory{p: p}, "stub")
}
