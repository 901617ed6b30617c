package search

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/errors"
)

// Session serializes searches for one logical consumer, the way an
// as-you-type search box works: each new query supersedes the previous
// one. At most one query is in flight per session; issuing a new one
// cancels the prior query's context, and a superseded query's results are
// dropped, never delivered.
type Session struct {
	engine *Engine

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSession creates a session with its own engine (and IDF cache) over db.
func NewSession(db *sql.DB, cfg *config.Config) *Session {
	return &Session{engine: NewEngine(db, cfg)}
}

// Search runs req, superseding any in-flight query. A superseded call
// returns QUERY_CANCELLED; callers treat that as "show nothing", not as a
// failure.
func (s *Session) Search(ctx context.Context, req Request) (*Response, error) {
	qctx, seq := s.begin(ctx)
	id := ulid.Make().String()

	rows, err := s.engine.Run(qctx, req)

	if stale := s.finish(seq); stale {
		return nil, errors.NewQueryCancelled(id)
	}
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return nil, errors.NewQueryCancelled(id)
		}
		return nil, err
	}
	return &Response{
		Results:   rows,
		Appended:  req.Skip > 0,
		RequestID: id,
	}, nil
}

// begin claims the next request sequence and cancels the previous
// in-flight query, if any.
func (s *Session) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	qctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.seq++
	return qctx, s.seq
}

// finish reports whether the request with sequence seq was superseded
// while running. The winner releases its own context.
func (s *Session) finish(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return true
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return false
}
