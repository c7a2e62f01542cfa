package roundtrip

import (
	"context"
	"sync"

	"bdsp-batch-editor/internal/errs"

	"github.com/rs/zerolog/log"
)

// Session holds at most one open workspace. Loading a new container
// replaces the current workspace only once extraction has succeeded, so a
// failed load leaves the previous one usable.
type Session struct {
	extractor *Extractor
	rebuilder *Rebuilder

	mu      sync.Mutex
	current *Workspace
}

// NewSession creates a Session whose extractor and rebuilder share opts.
func NewSession(opts ...Option) *Session {
	return &Session{
		extractor: NewExtractor(opts...),
		rebuilder: NewRebuilder(opts...),
	}
}

// Load extracts src and makes it the current workspace, releasing the
// previous one.
func (s *Session) Load(ctx context.Context, src string) (*Workspace, error) {
	ws, err := s.extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.current
	s.current = ws
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			log.Warn().Err(err).Str("source", prev.SourcePath).Msg("Failed to release previous workspace")
		}
	}
	return ws, nil
}

// Current returns the open workspace.
func (s *Session) Current() (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Closed() {
		return nil, errs.ErrNoContainerLoaded
	}
	return s.current, nil
}

// Rebuild rebuilds the current workspace into dest.
func (s *Session) Rebuild(ctx context.Context, dest string) (*RebuildReport, error) {
	ws, err := s.Current()
	if err != nil {
		return nil, errs.Wrap("rebuild", dest, err)
	}
	return s.rebuilder.Rebuild(ctx, ws, dest)
}

// Close releases the current workspace.
func (s *Session) Close() error {
	s.mu.Lock()
	ws := s.current
	s.current = nil
	s.mu.Unlock()
	if ws == nil {
		return nil
	}
	return ws.Close()
}
