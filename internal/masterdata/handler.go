package masterdata

import (
	"github.com/go-chi/chi/v5"

	"github.com/cropledger/cropledger/internal/masterdata/crops"
	"github.com/cropledger/cropledger/internal/masterdata/locations"
	"github.com/cropledger/cropledger/internal/masterdata/parties"
)

// Handler mounts the master data resources under one prefix.
type Handler struct {
	parties   *parties.Handler
	crops     *crops.Handler
	locations *locations.Handler
}

// NewHandler builds Handler instance.
func NewHandler(partyHandler *parties.Handler, cropHandler *crops.Handler, locationHandler *locations.Handler) *Handler {
	return &Handler{parties: partyHandler, crops: cropHandler, locations: locationHandler}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.parties != nil {
		r.Route("/parties", h.parties.MountRoutes)
	}
	if h.crops != nil {
		r.Route("/crops", h.crops.MountRoutes)
	}
	if h.locations != nil {
		r.Route("/states", h.locations.MountStateRoutes)
		r.Route("/cities", h.locations.MountCityRoutes)
	}
}
