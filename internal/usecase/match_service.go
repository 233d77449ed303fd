package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/match"
)

// ChannelCloser tears down a match channel when coordination ends. The
// realtime hub implements it.
type ChannelCloser interface {
	CloseMatch(matchID string)
}

// RosterSource reads fixtures and squad rosters from the external match
// store that owns them.
type RosterSource interface {
	FetchMatch(ctx context.Context, matchID string) (match.Match, bool, error)
}

type matchUpserter interface {
	Upsert(ctx context.Context, m match.Match) error
}

// SequenceSource reads the highest committed sequence of a match's event
// log. The event repository implements it.
type SequenceSource interface {
	MaxSequence(ctx context.Context, matchID string) (int64, error)
}

// MatchService drives the coordination lifecycle: starting a match spins up
// its single-writer runtime, completing it destroys assignments and stops
// the runtime. Rosters stay owned by the external match store.
type MatchService struct {
	matches  match.Repository
	events   SequenceSource
	roster   RosterSource
	runtimes *RuntimeRegistry
	channels ChannelCloser
	logger   *slog.Logger
	now      nowFunc
}

func NewMatchService(
	matches match.Repository,
	events SequenceSource,
	roster RosterSource,
	runtimes *RuntimeRegistry,
	channels ChannelCloser,
	logger *slog.Logger,
) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchService{
		matches:  matches,
		events:   events,
		roster:   roster,
		runtimes: runtimes,
		channels: channels,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *MatchService) Get(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Get")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	m, found, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !found {
		return match.Match{}, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	return m, nil
}

// Start moves a scheduled match to live and begins coordinating it.
func (s *MatchService) Start(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Start")
	defer span.End()

	m, err := s.Get(ctx, matchID)
	if err != nil {
		return match.Match{}, err
	}

	if refreshed, ok := s.refreshRoster(ctx, m); ok {
		m = refreshed
	}

	switch match.NormalizeStatus(m.Status) {
	case match.StatusScheduled:
	case match.StatusLive:
		// Restarts are tolerated so a crashed coordinator can resume.
	default:
		return match.Match{}, fmt.Errorf("%w: match %s is %s", ErrConflict, m.ID, m.Status)
	}

	if err := s.matches.UpdateStatus(ctx, m.ID, match.StatusLive); err != nil {
		return match.Match{}, fmt.Errorf("update match status: %w", err)
	}
	m.Status = match.StatusLive

	lastSeq, err := s.lastSequence(ctx, m.ID)
	if err != nil {
		return match.Match{}, err
	}
	s.runtimes.Start(m, lastSeq)
	s.logger.InfoContext(ctx, "match coordination started", "match_id", m.ID, "last_sequence", lastSeq)
	return m, nil
}

// lastSequence reads the durable log's high-water mark so a restarted
// coordinator continues the per-match total order instead of reusing
// sequences.
func (s *MatchService) lastSequence(ctx context.Context, matchID string) (int64, error) {
	if s.events == nil {
		return 0, nil
	}
	seq, err := s.events.MaxSequence(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("read last event sequence: %w", err)
	}
	return seq, nil
}

// Complete ends coordination: assignments are destroyed with the runtime
// and the match channel closes.
func (s *MatchService) Complete(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Complete")
	defer span.End()

	m, err := s.Get(ctx, matchID)
	if err != nil {
		return match.Match{}, err
	}
	if match.NormalizeStatus(m.Status) != match.StatusLive {
		return match.Match{}, fmt.Errorf("%w: match %s is not live", ErrConflict, m.ID)
	}

	if err := s.matches.UpdateStatus(ctx, m.ID, match.StatusCompleted); err != nil {
		return match.Match{}, fmt.Errorf("update match status: %w", err)
	}
	m.Status = match.StatusCompleted

	s.runtimes.Stop(m.ID)
	if s.channels != nil {
		s.channels.CloseMatch(m.ID)
	}

	s.logger.InfoContext(ctx, "match coordination completed", "match_id", m.ID)
	return m, nil
}

// refreshRoster pulls the latest squads from the external match store. The
// local status is preserved: lifecycle transitions stay decisions of this
// service, not of the provider. Fetch failures are absorbed so a provider
// outage never blocks kickoff.
func (s *MatchService) refreshRoster(ctx context.Context, m match.Match) (match.Match, bool) {
	if s.roster == nil {
		return match.Match{}, false
	}

	fetched, found, err := s.roster.FetchMatch(ctx, m.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "roster refresh failed", "match_id", m.ID, "error", err)
		return match.Match{}, false
	}
	if !found {
		return match.Match{}, false
	}

	fetched.Status = m.Status
	if upserter, ok := s.matches.(matchUpserter); ok {
		if err := upserter.Upsert(ctx, fetched); err != nil {
			s.logger.WarnContext(ctx, "roster upsert failed", "match_id", m.ID, "error", err)
			return match.Match{}, false
		}
	}

	s.logger.InfoContext(ctx, "roster refreshed", "match_id", m.ID)
	return fetched, true
}

// ResumeLive restarts runtimes for matches already live at boot.
func (s *MatchService) ResumeLive(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ResumeLive")
	defer span.End()

	live, err := s.matches.ListByStatus(ctx, match.StatusLive)
	if err != nil {
		return fmt.Errorf("list live matches: %w", err)
	}
	for _, m := range live {
		lastSeq, err := s.lastSequence(ctx, m.ID)
		if err != nil {
			return err
		}
		s.runtimes.Start(m, lastSeq)
		s.logger.InfoContext(ctx, "match coordination resumed", "match_id", m.ID, "last_sequence", lastSeq)
	}
	return nil
}
