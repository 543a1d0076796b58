package http

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type Catalog interface {
	ListPackages(ctx context.Context, lang string) ([]app.PackageView, error)
	ListAvailableSlots(ctx context.Context, from, to time.Time) ([]domain.Slot, error)
}

func HandlePackages(svc Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		pkgs, err := svc.ListPackages(r.Context(), r.URL.Query().Get("lang"))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		resp := make([]packageResponse, 0, len(pkgs))
		for _, p := range pkgs {
			resp = append(resp, packageResponse{
				ID:              p.ID,
				Name:            p.Name,
				Description:     p.Description,
				Features:        p.Features,
				PriceMinor:      p.PriceMinor,
				Currency:        p.Currency,
				DurationMinutes: p.DurationMinutes,
				IsPopular:       p.IsPopular,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type packageResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Features        []string `json:"features"`
	PriceMinor      int64    `json:"price_minor"`
	Currency        string   `json:"currency"`
	DurationMinutes int      `json:"duration_minutes"`
	IsPopular       bool     `json:"is_popular"`
}

// HandleSlots lists free slots, optionally bounded by ?from= and ?to= (RFC3339).
func HandleSlots(svc Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		from, err := parseOptionalTime(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid from, expected RFC3339")
			return
		}
		to, err := parseOptionalTime(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid to, expected RFC3339")
			return
		}

		slots, err := svc.ListAvailableSlots(r.Context(), from, to)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

type slotResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

func toSlotResponses(slots []domain.Slot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{ID: s.ID, StartTime: s.StartTime, EndTime: s.EndTime, IsBooked: s.IsBooked})
	}
	return out
}

func parseOptionalTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
