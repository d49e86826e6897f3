package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/dealer-chat/backend/internal/handler/assets"
	"github.com/zhouzirui/dealer-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/dealer-chat/backend/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/dealer-chat/backend/internal/middleware"
	personaModel "github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
	"github.com/zhouzirui/dealer-chat/backend/internal/service/relay"
	"github.com/zhouzirui/dealer-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, relaySvc *relay.Service, assetHandler *assets.Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(corsOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Loader script and stylesheet live at the site root so host pages can
	// reference them without a prefix.
	assetHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chat.New(relaySvc).RegisterRoutes(api)
		persona.New(personas, relaySvc).RegisterRoutes(api)
	})

	return r
}
