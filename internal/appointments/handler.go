package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tecmax-dev/sisvida-sub005/internal/professionals"
	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

// Handler exposes availability over HTTP for clinic-side consumers.
type Handler struct {
	service *Service
	logger  *logging.Logger
	now     func() time.Time
}

// NewHandler creates an availability handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("appointments: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// Availability handles GET /professionals/{professionalID}/availability.
// With ?date=YYYY-MM-DD it returns the free start times for that date;
// without it, the open dates over the scan horizon.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	professionalID, err := uuid.Parse(chi.URLParam(r, "professionalID"))
	if err != nil {
		http.Error(w, "invalid professional id", http.StatusBadRequest)
		return
	}

	prof, err := h.service.GetProfessional(r.Context(), professionalID)
	if err != nil {
		if errors.Is(err, professionals.ErrNotFound) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load professional", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	now := h.now()
	if rawDate := r.URL.Query().Get("date"); rawDate != "" {
		date, err := time.ParseInLocation(dateLayout, rawDate, now.Location())
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		h.openTimes(w, r, prof, date, now)
		return
	}
	h.openDates(w, r, prof, now)
}

func (h *Handler) openTimes(w http.ResponseWriter, r *http.Request, prof *professionals.Professional, date, now time.Time) {
	times, err := h.service.OpenTimesFor(r.Context(), prof, date, now)
	switch {
	case errors.Is(err, schedule.ErrNotConfigured):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "schedule not configured",
		})
		return
	case errors.Is(err, schedule.ErrWeekdayClosed):
		h.writeJSON(w, http.StatusOK, map[string]any{
			"professional": prof.Name,
			"date":         date.Format(dateLayout),
			"times":        []string{},
			"reason":       "weekday_closed",
		})
		return
	case err != nil:
		h.logger.Error("failed to compute open times", "professional_id", prof.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	list := make([]string, 0, len(times))
	for _, t := range times {
		list = append(list, t.String())
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"professional": prof.Name,
		"date":         date.Format(dateLayout),
		"times":        list,
	})
}

func (h *Handler) openDates(w http.ResponseWriter, r *http.Request, prof *professionals.Professional, now time.Time) {
	dates, err := h.service.OpenDatesFor(r.Context(), prof, now)
	switch {
	case errors.Is(err, schedule.ErrNotConfigured):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "schedule not configured",
		})
		return
	case err != nil:
		h.logger.Error("failed to compute open dates", "professional_id", prof.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	list := make([]map[string]any, 0, len(dates))
	for _, d := range dates {
		list = append(list, map[string]any{
			"date":       d.Date.Format(dateLayout),
			"free_slots": d.FreeSlots,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"professional": prof.Name,
		"dates":        list,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
