package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/flowboard/internal/api/v1"
	"github.com/gosuda/flowboard/internal/api/ws"
	"github.com/gosuda/flowboard/internal/engine"
	"github.com/gosuda/flowboard/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, eng *engine.Service) {
	v1.RegisterBoardRoutes(api, store, eng)
	v1.RegisterCardRoutes(api, store, eng)
	v1.RegisterTaskRoutes(api, eng)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/boards/{boardID}", hub.ServeBoard)
	r.Get("/boards/{boardID}/cards/{cardID}", hub.ServeCard)
}
