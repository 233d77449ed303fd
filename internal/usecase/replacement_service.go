package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/domain/replacement"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
	idgen "github.com/pitchside/matchtracker/internal/platform/id"
)

// ReplacementService reacts to absence signals: it transfers the absent
// tracker's coverage and pending work to an eligible backup, or raises a
// manager-facing alert when none exists. Coverage loss is always reported,
// never silently absorbed.
type ReplacementService struct {
	trackers    tracker.Directory
	records     replacement.Repository
	notifier    *NotificationService
	broadcaster Broadcaster
	ids         idgen.Generator
	logger      *slog.Logger
	now         nowFunc
}

func NewReplacementService(
	trackers tracker.Directory,
	records replacement.Repository,
	notifier *NotificationService,
	broadcaster Broadcaster,
	ids idgen.Generator,
	logger *slog.Logger,
) *ReplacementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplacementService{
		trackers:    trackers,
		records:     records,
		notifier:    notifier,
		broadcaster: broadcaster,
		ids:         ids,
		logger:      logger,
		now:         time.Now,
	}
}

// ListByMatch returns the replacement audit trail of a match.
func (s *ReplacementService) ListByMatch(ctx context.Context, matchID string) ([]replacement.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReplacementService.ListByMatch")
	defer span.End()

	records, err := s.records.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list replacement records: %w", err)
	}
	return records, nil
}

// onAbsent runs inside the match's writer goroutine, invoked by the
// liveness tick exactly once per absence episode.
func (s *ReplacementService) onAbsent(ctx context.Context, st *matchState, absentID, reason string) {
	snapshot := s.assignmentsOf(st, absentID)

	replacementID, err := s.selectReplacement(ctx, st, absentID)
	if err != nil {
		s.handleUnavailable(ctx, st, absentID, snapshot, err)
		return
	}

	migrated := s.migrate(st, absentID, replacementID, snapshot)

	if p, ok := st.presences[absentID]; ok {
		p.State = tracker.PresenceReplaced
		s.broadcaster.Publish(st.match.ID, stream.KindTrackerPresenceChanged, *p)
	}

	record := replacement.Record{
		MatchID:              st.match.ID,
		AbsentTrackerID:      absentID,
		ReplacementTrackerID: replacementID,
		AssignmentSnapshot:   snapshot,
		MigratedPendingIDs:   migrated,
		Reason:               reason,
		CreatedAt:            s.now(),
	}
	if id, idErr := s.ids.NewID(); idErr == nil {
		record.ID = id
	}
	if err := s.records.Append(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "write replacement record failed",
			"match_id", st.match.ID, "absent_tracker_id", absentID, "error", err)
	}

	if _, err := s.notifier.Dispatch(ctx, notification.Notification{
		UserID:    replacementID,
		Type:      notification.TypeUrgentReplacement,
		Title:     "Urgent replacement assignment",
		Body:      fmt.Sprintf("You are taking over tracker %s's coverage in match %s", absentID, st.match.ID),
		MatchID:   st.match.ID,
		WithSound: true,
	}); err != nil {
		s.logger.ErrorContext(ctx, "replacement notification failed",
			"match_id", st.match.ID, "replacement_tracker_id", replacementID, "error", err)
	}

	s.notifier.DispatchAll(ctx, st.match.ManagerIDs, notification.Notification{
		Type:    notification.TypeInfo,
		Title:   "Tracker replaced",
		Body:    fmt.Sprintf("Tracker %s went absent (%s); %s took over %d pending events", absentID, reason, replacementID, len(migrated)),
		MatchID: st.match.ID,
	})

	s.logger.InfoContext(ctx, "tracker replaced",
		"match_id", st.match.ID,
		"absent_tracker_id", absentID,
		"replacement_tracker_id", replacementID,
		"migrated_pending_events", len(migrated),
		"reason", reason)
}

// selectReplacement picks a backup: pre-designated backups for the match
// first, then any idle operator with the tracker role, tie-broken by
// earliest registration time and then tracker id.
func (s *ReplacementService) selectReplacement(ctx context.Context, st *matchState, absentID string) (string, error) {
	busy := make(map[string]struct{}, len(st.assignments))
	for trackerID := range st.assignments {
		busy[trackerID] = struct{}{}
	}
	for trackerID, p := range st.presences {
		if p.State == tracker.PresenceAbsent || p.State == tracker.PresenceReplaced {
			busy[trackerID] = struct{}{}
		}
	}

	for _, backupID := range st.match.BackupTrackerIDs {
		if backupID == absentID {
			continue
		}
		if _, taken := busy[backupID]; taken {
			continue
		}
		if _, found, err := s.trackers.GetByID(ctx, backupID); err != nil {
			return "", fmt.Errorf("look up backup tracker: %w", err)
		} else if found {
			return backupID, nil
		}
	}

	candidates, err := s.trackers.ListByRole(ctx, tracker.RoleTracker)
	if err != nil {
		return "", fmt.Errorf("list idle trackers: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RegisteredAt.Equal(candidates[j].RegisteredAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].RegisteredAt.Before(candidates[j].RegisteredAt)
	})

	for _, c := range candidates {
		if c.ID == absentID {
			continue
		}
		if _, taken := busy[c.ID]; taken {
			continue
		}
		return c.ID, nil
	}

	return "", fmt.Errorf("%w: match %s", ErrReplacementUnavailable, st.match.ID)
}

// migrate copies the absent tracker's assignments to the replacement and
// re-parents its pending events, releasing held claims first.
func (s *ReplacementService) migrate(st *matchState, absentID, replacementID string, snapshot []assignment.Assignment) []string {
	delete(st.assignments, absentID)

	for _, a := range snapshot {
		inherited := a
		inherited.TrackerID = replacementID
		inherited.CreatedAt = s.now()
		st.assignments[replacementID] = inherited
		s.broadcaster.Publish(st.match.ID, stream.KindAssignmentChanged, inherited)
	}
	if len(snapshot) > 0 {
		// The successor is monitored from the handover onward.
		st.ensurePresence(replacementID, s.now())
	}

	var migrated []string
	for _, item := range st.pendings {
		claimedByAbsent := item.ClaimedBy == absentID
		if claimedByAbsent {
			item.ClaimedBy = ""
			item.ClaimedAt = time.Time{}
			s.broadcaster.Publish(st.match.ID, stream.KindPendingEventUpdated, *item)
		}
		if claimedByAbsent || coveredBySnapshot(snapshot, item.ActionType, item.PlayerID, item.TeamID) {
			migrated = append(migrated, item.ID)
		}
	}

	sort.Strings(migrated)
	return migrated
}

func coveredBySnapshot(snapshot []assignment.Assignment, actionType event.ActionType, playerID, teamID string) bool {
	for _, a := range snapshot {
		if a.Covers(actionType, playerID, teamID) {
			return true
		}
	}
	return false
}

// handleUnavailable leaves the coverage area open and alerts the managers.
// New detections inside the open area enqueue at urgent until a manager
// assigns a tracker manually.
func (s *ReplacementService) handleUnavailable(ctx context.Context, st *matchState, absentID string, snapshot []assignment.Assignment, cause error) {
	delete(st.assignments, absentID)
	st.openCoverage = append(st.openCoverage, snapshot...)

	for _, item := range st.pendings {
		if item.ClaimedBy == absentID {
			item.ClaimedBy = ""
			item.ClaimedAt = time.Time{}
			s.broadcaster.Publish(st.match.ID, stream.KindPendingEventUpdated, *item)
		}
	}

	s.notifier.DispatchAll(ctx, st.match.ManagerIDs, notification.Notification{
		Type:      notification.TypeInfo,
		Title:     "Replacement unavailable",
		Body:      fmt.Sprintf("Tracker %s is absent from match %s and no eligible replacement exists; coverage is open until manually reassigned", absentID, st.match.ID),
		MatchID:   st.match.ID,
		WithSound: true,
	})

	s.logger.ErrorContext(ctx, "replacement unavailable",
		"match_id", st.match.ID, "absent_tracker_id", absentID, "error", cause)
}

func (s *ReplacementService) assignmentsOf(st *matchState, trackerID string) []assignment.Assignment {
	var out []assignment.Assignment
	if a, ok := st.assignments[trackerID]; ok {
		out = append(out, a)
	}
	return out
}
