package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/pkg/utils"
)

// Handler 骰子目录的HTTP处理器
type Handler struct {
	catalog catalog.Store
}

// New 创建目录处理器
func New(store catalog.Store) *Handler {
	return &Handler{
		catalog: store,
	}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/symbols", h.handleListSymbols)
	r.Get("/paths", h.handleListPaths)
	r.Get("/positions", h.handleListPositions)
}

func (h *Handler) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.Symbols())
}

func (h *Handler) handleListPaths(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.Paths())
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.Positions())
}
