package server

import (
	"net/http"
	"time"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/handlers"
	customMiddleware "task-sync-backend/pkg/middleware"
	"task-sync-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the monolith router: every HTTP and websocket endpoint
// hangs off one Chi mux.
func NewRouter(cfg *config.Config, db database.DatabaseInterface) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)
	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(customMiddleware.CORS(cfg))
	router.Use(customMiddleware.MaxBodySize(1 << 20))
	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	authHandler := handlers.NewAuthHandler(cfg, db)
	spacesHandler := handlers.NewSpacesHandler(cfg, db)
	tasksHandler := handlers.NewTasksHandler(cfg, db)
	streamHandler := handlers.NewStreamHandler(cfg, db)

	router.Get("/", authHandler.HealthCheck)
	router.Get("/health", authHandler.HealthCheck)

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.With(customMiddleware.ContentTypeJSON).Post("/register", authHandler.Register)
			r.With(customMiddleware.ContentTypeJSON).Post("/login", authHandler.Login)
			r.With(customMiddleware.ContentTypeJSON).Post("/refresh", authHandler.RefreshToken)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))
			// The stream endpoint is long-lived and registered outside this
			// timeout further down.
			r.Use(middleware.Timeout(30 * time.Second))

			r.Route("/me", func(r chi.Router) {
				r.Get("/", authHandler.Me)
				r.Put("/", authHandler.UpdateMe)
				r.Put("/push-token", authHandler.UpdatePushToken)
				r.Post("/pairing-code", spacesHandler.RefreshPairingCode)
			})

			// Pairing
			r.Post("/pair", spacesHandler.Pair)
			r.Post("/unpair", spacesHandler.Unpair)
			r.Get("/partner", spacesHandler.Partner)

			r.Route("/spaces", func(r chi.Router) {
				r.Get("/", spacesHandler.ListSpaces)
				r.Post("/", spacesHandler.CreateSpace)
				r.Post("/join", spacesHandler.JoinSpace)
				r.Post("/{spaceID}/leave", spacesHandler.LeaveSpace)
				r.Get("/{spaceID}/progress", spacesHandler.SpaceProgress)
				r.Delete("/{spaceID}", spacesHandler.DeleteSpace)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", tasksHandler.ListTasks) // expects ?space_id=
				r.Post("/", tasksHandler.CreateTask)
				r.Get("/completed", tasksHandler.CompletedTasks)
				r.Put("/{taskID}", tasksHandler.UpdateTask)
				r.Put("/{taskID}/status", tasksHandler.UpdateStatus)
				r.Put("/{taskID}/progress", tasksHandler.UpdateProgress)
				r.Get("/{taskID}/capabilities", tasksHandler.Capabilities)
				r.Delete("/{taskID}", tasksHandler.DeleteTask)
			})

		})

		// Live subscription stream: authenticated but never timed out
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))
			r.Get("/stream", streamHandler.Serve)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, "Endpoint not found: "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed: "+r.Method)
	})
}
