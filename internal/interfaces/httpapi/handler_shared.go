package httpapi

import (
	"context"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/domain/pending"
	"github.com/pitchside/matchtracker/internal/domain/replacement"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

type setAssignmentRequest struct {
	TrackerID  string   `json:"tracker_id" validate:"required"`
	EventTypes []string `json:"event_types" validate:"omitempty,dive,required"`
	PlayerIDs  []string `json:"player_ids" validate:"omitempty,dive,required"`
	TeamID     string   `json:"team_id"`
	Type       string   `json:"type" validate:"required,oneof=EVENT_TYPE_SPECIALIST PLAYER_SPECIALIST GENERALIST"`
	Override   bool     `json:"override"`
}

type detectionRequest struct {
	ActionType string `json:"action_type" validate:"required"`
	PlayerID   string `json:"player_id"`
	TeamID     string `json:"team_id" validate:"required"`
}

type ingestDetectionRequest struct {
	MatchID    string `json:"match_id" validate:"required"`
	ActionType string `json:"action_type" validate:"required"`
	PlayerID   string `json:"player_id"`
	TeamID     string `json:"team_id" validate:"required"`
	DetectedBy string `json:"detected_by"`
}

type recordEventRequest struct {
	PendingID  string              `json:"pending_id"`
	ActionType string              `json:"action_type" validate:"required"`
	PlayerID   string              `json:"player_id"`
	TeamID     string              `json:"team_id" validate:"required"`
	Details    eventDetailsRequest `json:"details"`
}

type eventDetailsRequest struct {
	Outcome        string `json:"outcome" validate:"omitempty,oneof=SUCCESS FAILURE"`
	DistanceMeters int    `json:"distance_meters" validate:"omitempty,min=0"`
	CardColor      string `json:"card_color"`
	PlayerInID     string `json:"player_in_id"`
	PlayerOutID    string `json:"player_out_id"`
	Note           string `json:"note" validate:"omitempty,max=500"`
}

type reviewEventRequest struct {
	Verdict string `json:"verdict" validate:"required,oneof=CONFIRMED DISPUTED REJECTED"`
	Note    string `json:"note" validate:"omitempty,max=500"`
}

type heartbeatRequest struct {
	BatteryLevel int    `json:"battery_level" validate:"min=0,max=100"`
	Connection   string `json:"connection" validate:"omitempty,oneof=ONLINE DEGRADED OFFLINE"`
}

type rosterPlayerDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number,omitempty"`
}

type matchTeamDTO struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Players []rosterPlayerDTO `json:"players"`
}

type matchDTO struct {
	ID               string       `json:"id"`
	Status           string       `json:"status"`
	HomeTeam         matchTeamDTO `json:"home_team"`
	AwayTeam         matchTeamDTO `json:"away_team"`
	ManagerIDs       []string     `json:"manager_ids,omitempty"`
	BackupTrackerIDs []string     `json:"backup_tracker_ids,omitempty"`
}

type assignmentDTO struct {
	MatchID    string   `json:"match_id"`
	TrackerID  string   `json:"tracker_id"`
	EventTypes []string `json:"event_types,omitempty"`
	PlayerIDs  []string `json:"player_ids,omitempty"`
	TeamID     string   `json:"team_id,omitempty"`
	Type       string   `json:"type"`
	CreatedAt  string   `json:"created_at"`
}

type pendingEventDTO struct {
	ID         string `json:"id"`
	MatchID    string `json:"match_id"`
	ActionType string `json:"action_type"`
	PlayerID   string `json:"player_id,omitempty"`
	TeamID     string `json:"team_id"`
	Priority   string `json:"priority"`
	DetectedAt string `json:"detected_at"`
	ClaimedBy  string `json:"claimed_by,omitempty"`
	ClaimedAt  string `json:"claimed_at,omitempty"`
}

type confirmedEventDTO struct {
	ID              string               `json:"id"`
	MatchID         string               `json:"match_id"`
	Sequence        int64                `json:"sequence"`
	ActionType      string               `json:"action_type"`
	PlayerID        string               `json:"player_id,omitempty"`
	TeamID          string               `json:"team_id"`
	RecordedBy      string               `json:"recorded_by"`
	SourcePendingID string               `json:"source_pending_id,omitempty"`
	Details         event.Details        `json:"details"`
	Review          *event.QualityReview `json:"review,omitempty"`
	RecordedAt      string               `json:"recorded_at"`
}

type presenceDTO struct {
	TrackerID       string `json:"tracker_id"`
	MatchID         string `json:"match_id"`
	State           string `json:"state"`
	LastHeartbeatAt string `json:"last_heartbeat_at,omitempty"`
	BatteryLevel    int    `json:"battery_level"`
	Connection      string `json:"connection,omitempty"`
}

type notificationDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	MatchID   string `json:"match_id,omitempty"`
	WithSound bool   `json:"with_sound"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

type replacementRecordDTO struct {
	ID                   string          `json:"id"`
	MatchID              string          `json:"match_id"`
	AbsentTrackerID      string          `json:"absent_tracker_id"`
	ReplacementTrackerID string          `json:"replacement_tracker_id"`
	Reason               string          `json:"reason"`
	AssignmentSnapshot   []assignmentDTO `json:"assignment_snapshot,omitempty"`
	MigratedPendingIDs   []string        `json:"migrated_pending_ids,omitempty"`
	CreatedAt            string          `json:"created_at"`
}

func matchToDTO(ctx context.Context, v match.Match) matchDTO {
	_ = ctx
	return matchDTO{
		ID:               v.ID,
		Status:           v.Status,
		HomeTeam:         teamToDTO(v.HomeTeam),
		AwayTeam:         teamToDTO(v.AwayTeam),
		ManagerIDs:       v.ManagerIDs,
		BackupTrackerIDs: v.BackupTrackerIDs,
	}
}

func teamToDTO(v match.Team) matchTeamDTO {
	players := make([]rosterPlayerDTO, 0, len(v.Players))
	for _, p := range v.Players {
		players = append(players, rosterPlayerDTO{ID: p.ID, Name: p.Name, Number: p.Number})
	}
	return matchTeamDTO{ID: v.ID, Name: v.Name, Players: players}
}

func assignmentToDTO(ctx context.Context, v assignment.Assignment) assignmentDTO {
	_ = ctx
	eventTypes := make([]string, 0, len(v.EventTypes))
	for _, et := range v.EventTypes {
		eventTypes = append(eventTypes, string(et))
	}
	return assignmentDTO{
		MatchID:    v.MatchID,
		TrackerID:  v.TrackerID,
		EventTypes: eventTypes,
		PlayerIDs:  v.PlayerIDs,
		TeamID:     v.TeamID,
		Type:       string(v.Type),
		CreatedAt:  formatTime(v.CreatedAt),
	}
}

func pendingToDTO(ctx context.Context, v pending.PendingEvent) pendingEventDTO {
	_ = ctx
	return pendingEventDTO{
		ID:         v.ID,
		MatchID:    v.MatchID,
		ActionType: string(v.ActionType),
		PlayerID:   v.PlayerID,
		TeamID:     v.TeamID,
		Priority:   string(v.Priority),
		DetectedAt: formatTime(v.DetectedAt),
		ClaimedBy:  v.ClaimedBy,
		ClaimedAt:  formatTime(v.ClaimedAt),
	}
}

func confirmedEventToDTO(ctx context.Context, v event.ConfirmedEvent) confirmedEventDTO {
	_ = ctx
	return confirmedEventDTO{
		ID:              v.ID,
		MatchID:         v.MatchID,
		Sequence:        v.Sequence,
		ActionType:      string(v.ActionType),
		PlayerID:        v.PlayerID,
		TeamID:          v.TeamID,
		RecordedBy:      v.RecordedBy,
		SourcePendingID: v.SourcePendingID,
		Details:         v.Details,
		Review:          v.Review,
		RecordedAt:      formatTime(v.RecordedAt),
	}
}

func presenceToDTO(ctx context.Context, v tracker.Presence) presenceDTO {
	_ = ctx
	return presenceDTO{
		TrackerID:       v.TrackerID,
		MatchID:         v.MatchID,
		State:           string(v.State),
		LastHeartbeatAt: formatTime(v.LastHeartbeatAt),
		BatteryLevel:    v.BatteryLevel,
		Connection:      string(v.Connection),
	}
}

func notificationToDTO(ctx context.Context, v notification.Notification) notificationDTO {
	_ = ctx
	return notificationDTO{
		ID:        v.ID,
		Type:      string(v.Type),
		Title:     v.Title,
		Body:      v.Body,
		MatchID:   v.MatchID,
		WithSound: v.WithSound,
		IsRead:    v.IsRead,
		CreatedAt: formatTime(v.CreatedAt),
	}
}

func replacementToDTO(ctx context.Context, v replacement.Record) replacementRecordDTO {
	snapshot := make([]assignmentDTO, 0, len(v.AssignmentSnapshot))
	for _, item := range v.AssignmentSnapshot {
		snapshot = append(snapshot, assignmentToDTO(ctx, item))
	}
	return replacementRecordDTO{
		ID:                   v.ID,
		MatchID:              v.MatchID,
		AbsentTrackerID:      v.AbsentTrackerID,
		ReplacementTrackerID: v.ReplacementTrackerID,
		Reason:               v.Reason,
		AssignmentSnapshot:   snapshot,
		MigratedPendingIDs:   v.MigratedPendingIDs,
		CreatedAt:            formatTime(v.CreatedAt),
	}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339Nano)
}

func toActionTypes(values []string) []event.ActionType {
	if len(values) == 0 {
		return nil
	}
	actions := make([]event.ActionType, 0, len(values))
	for _, v := range values {
		actions = append(actions, event.ActionType(v))
	}
	return actions
}
