package api

import (
	"github.com/stockpiled/stockpile/internal/inventory"
	"github.com/stockpiled/stockpile/pkg/foodfacts"
)

var (
	service      *inventory.Service
	projector    *inventory.Projector
	lookupClient *foodfacts.Client
)

// Setup wires the API handlers to their collaborators and registers all
// routes on the web server.
func Setup(svc *inventory.Service, proj *inventory.Projector, lookup *foodfacts.Client) {
	service = svc
	projector = proj
	lookupClient = lookup

	registerAuthRoutes()
	registerProductRoutes()
	registerLiveRoutes()
	registerLookupRoutes()
}
