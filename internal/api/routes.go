package api

import (
	"net/http"
)

// RegisterRoutes регистрирует маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	middlewares := []Middleware{Recovery(h.logger), Logging(h.logger)}
	if h.requests != nil {
		middlewares = append(middlewares, Instrument(h.requests))
	}
	chain := Chain(middlewares...)

	mux.Handle("POST /api/v1/actions", chain(http.HandlerFunc(h.PushAction)))
	mux.Handle("GET /api/v1/actions/link", chain(http.HandlerFunc(h.FollowLink)))
	mux.Handle("GET /api/v1/actions/stats", chain(http.HandlerFunc(h.GetStats)))
	mux.Handle("GET /api/v1/actions/history", chain(http.HandlerFunc(h.ListHistory)))
	mux.Handle("GET /api/v1/actions/catalog", chain(http.HandlerFunc(h.ListCatalog)))
}
