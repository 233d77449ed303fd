package httpapi

import (
	"net/http"

	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /readyz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerMatchRoutes(mux, handler, verifier)
	registerTrackingRoutes(mux, handler, verifier)
	registerNotificationRoutes(mux, handler, verifier)
}

// registerDetectorRoutes wires the machine-to-machine ingest path used by
// the vision classifier.
func registerDetectorRoutes(mux *http.ServeMux, handler *Handler, detectorIngestToken string) {
	mux.Handle("POST /v1/internal/detections", RequireDetectorToken(detectorIngestToken, http.HandlerFunc(handler.IngestDetection)))
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/matches/{matchID}", RequireAuth(verifier, http.HandlerFunc(handler.GetMatch)))
	mux.Handle("GET /v1/matches/{matchID}/events", RequireAuth(verifier, http.HandlerFunc(handler.ListMatchEvents)))
	mux.Handle("GET /v1/matches/{matchID}/replacements", RequireAuth(verifier, http.HandlerFunc(handler.ListMatchReplacements)))
	mux.Handle("GET /v1/matches/{matchID}/presences", RequireAuth(verifier, http.HandlerFunc(handler.ListPresences)))
	mux.Handle("GET /v1/matches/{matchID}/stream", RequireAuth(verifier, http.HandlerFunc(handler.StreamMatch)))

	mux.Handle("POST /v1/matches/{matchID}/start",
		RequireRole(verifier, http.HandlerFunc(handler.StartMatch), tracker.RoleManager))
	mux.Handle("POST /v1/matches/{matchID}/complete",
		RequireRole(verifier, http.HandlerFunc(handler.CompleteMatch), tracker.RoleManager))
}

func registerTrackingRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/matches/{matchID}/assignments", RequireAuth(verifier, http.HandlerFunc(handler.ListAssignments)))
	mux.Handle("GET /v1/matches/{matchID}/assignments/owner", RequireAuth(verifier, http.HandlerFunc(handler.ResolveAssignmentOwner)))
	mux.Handle("PUT /v1/matches/{matchID}/assignments",
		RequireRole(verifier, http.HandlerFunc(handler.SetAssignment), tracker.RoleManager))

	mux.Handle("POST /v1/matches/{matchID}/detections",
		RequireRole(verifier, http.HandlerFunc(handler.SubmitDetection), tracker.RoleTracker, tracker.RoleManager))

	mux.Handle("GET /v1/matches/{matchID}/pending", RequireAuth(verifier, http.HandlerFunc(handler.ListPendingEvents)))
	mux.Handle("POST /v1/matches/{matchID}/pending/{pendingID}/claim",
		RequireRole(verifier, http.HandlerFunc(handler.ClaimPendingEvent), tracker.RoleTracker, tracker.RoleManager))
	mux.Handle("POST /v1/matches/{matchID}/pending/{pendingID}/release",
		RequireRole(verifier, http.HandlerFunc(handler.ReleasePendingEvent), tracker.RoleTracker, tracker.RoleManager))

	mux.Handle("POST /v1/matches/{matchID}/events",
		RequireRole(verifier, http.HandlerFunc(handler.RecordEvent), tracker.RoleTracker, tracker.RoleManager))
	mux.Handle("POST /v1/events/{eventID}/review",
		RequireRole(verifier, http.HandlerFunc(handler.ReviewEvent), tracker.RoleReviewer))

	mux.Handle("POST /v1/matches/{matchID}/heartbeat",
		RequireRole(verifier, http.HandlerFunc(handler.Heartbeat), tracker.RoleTracker, tracker.RoleManager))
}

func registerNotificationRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/notifications", RequireAuth(verifier, http.HandlerFunc(handler.ListNotifications)))
	mux.Handle("POST /v1/notifications/{notificationID}/read", RequireAuth(verifier, http.HandlerFunc(handler.MarkNotificationRead)))
	mux.Handle("DELETE /v1/notifications/{notificationID}", RequireAuth(verifier, http.HandlerFunc(handler.DismissNotification)))
}
