package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/domain/calendar"
	"github.com/okian/commitquest/pkg/errs"
)

// ProfileDependencies defines the reads used by ProfileHandler.
type ProfileDependencies interface {
	Profile(ctx context.Context, userID uuid.UUID) (service.Profile, error)
	Calendar(ctx context.Context, userID uuid.UUID, q service.CalendarQuery) (calendar.Calendar, error)
}

// ProfileHandler serves progression and calendar reads.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleMe handles GET /api/me.
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	h.writeProfile(w, r, actor.ID)
}

// HandleUser handles GET /api/users/{id}.
func (h *ProfileHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.Newf("api.user", errs.ErrValidation, "invalid user id"))
		return
	}
	h.writeProfile(w, r, id)
}

func (h *ProfileHandler) writeProfile(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	p, err := h.deps.Profile(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCalendar handles GET /api/me/calendar?days=N&end=YYYY-MM-DD.
func (h *ProfileHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	actor, _ := actorFrom(r)

	var q service.CalendarQuery
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errs.Newf(op, errs.ErrValidation, "days must be a positive integer"))
			return
		}
		q.Days = n
	}
	if s := r.URL.Query().Get("end"); s != "" {
		d, err := calendar.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, errs.ErrValidation, err))
			return
		}
		q.End = d
	}

	cal, err := h.deps.Calendar(r.Context(), actor.ID, q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}
