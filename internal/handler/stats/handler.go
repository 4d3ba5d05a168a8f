package stats

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	throwModel "github.com/zhouzirui/insight-dice/backend/internal/model/throw"
	"github.com/zhouzirui/insight-dice/backend/pkg/utils"
)

// AdminHeader carries the caller's user ID for admin-only routes.
const AdminHeader = "X-Admin-ID"

// Reader computes throw statistics.
type Reader interface {
	Stats(ctx context.Context, now time.Time) (throwModel.Stats, error)
}

// Handler 统计数据的HTTP处理器
type Handler struct {
	stats  Reader
	admins config.AdminConfig
	logger *zap.Logger
}

// New 创建统计处理器
func New(stats Reader, admins config.AdminConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{stats: stats, admins: admins, logger: logger.Named("stats")}
}

// RegisterRoutes 注册统计路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if !h.admins.IsAdmin(r.Header.Get(AdminHeader)) {
		utils.RespondCodedError(w, http.StatusForbidden, "forbidden", "admin access required")
		return
	}

	stats, err := h.stats.Stats(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("compute stats failed", zap.Error(err))
		utils.RespondCodedError(w, http.StatusServiceUnavailable, "persistence_unavailable", "stats unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}
