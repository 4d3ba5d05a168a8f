package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	catalogHandler "github.com/zhouzirui/insight-dice/backend/internal/handler/catalog"
	statsHandler "github.com/zhouzirui/insight-dice/backend/internal/handler/stats"
	throwHandler "github.com/zhouzirui/insight-dice/backend/internal/handler/throw"
	catalogModel "github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/repository"
	"github.com/zhouzirui/insight-dice/backend/pkg/utils"
)

// Deps are the services the router exposes.
type Deps struct {
	Catalog    catalogModel.Store
	Throws     throwHandler.Service
	Repository repository.Repository
	Config     *config.Config
	Logger     *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", statsHandler.AdminHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		catalogHandler.New(deps.Catalog).RegisterRoutes(api)
		throwHandler.New(deps.Throws, deps.Repository, logger).RegisterRoutes(api)
		statsHandler.New(deps.Repository, deps.Config.Admin, logger).RegisterRoutes(api)
	})

	return r
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
