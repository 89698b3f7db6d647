package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/oseayemenre/bookshelf/internal/config"
	"github.com/oseayemenre/bookshelf/internal/covers"
	"github.com/oseayemenre/bookshelf/internal/logger"
	"github.com/oseayemenre/bookshelf/internal/store"
)

type Api struct {
	router *chi.Mux
	logger logger.Logger
	covers *covers.Service
	store  store.Store
	config *config.Config
}

func New(
	router *chi.Mux,
	logger logger.Logger,
	covers *covers.Service,
	store store.Store,
	config *config.Config,
) *Api {
	return &Api{
		router: router,
		logger: logger,
		covers: covers,
		store:  store,
		config: config,
	}
}

func (a *Api) RegisterRoutes() {
	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.LoggingMiddleware)

		r.Get("/test-connection", a.HandleTestConnection)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", a.HandleGetBooks)
			r.Post("/", a.HandleCreateBook)

			r.Route("/{bookId}", func(r chi.Router) {
				r.Get("/", a.HandleGetBook)
				r.Put("/", a.HandleUpdateBook)
				r.Delete("/", a.HandleDeleteBook)
			})
		})
	})
}
