package throw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	throwModel "github.com/zhouzirui/insight-dice/backend/internal/model/throw"
	throwService "github.com/zhouzirui/insight-dice/backend/internal/service/throw"
	"github.com/zhouzirui/insight-dice/backend/pkg/utils"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 50
)

// Service is the throw state machine as seen by the transports.
type Service interface {
	Begin(ctx context.Context, userID string) (throwService.View, error)
	Cancel(ctx context.Context, userID string) (throwService.CancelResult, error)
	SubmitSituation(ctx context.Context, userID, text string) (throwService.SituationResult, error)
	ChoosePath(ctx context.Context, userID, pathKey string) (throwService.PathResult, error)
	Status(userID string) throwService.View
}

// HistoryReader lists past throws of a user.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]throwModel.Record, error)
}

// Handler 掷骰流程的HTTP与WebSocket处理器
type Handler struct {
	svc      Service
	history  HistoryReader
	validate *validator.Validate
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// readTimeout bounds the wait for the next frame on a websocket connection.
	readTimeout time.Duration
}

// New 创建掷骰处理器
func New(svc Service, history HistoryReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		history:  history,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("throw-handler"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout: defaultReadTimeout,
	}
}

// RegisterRoutes 注册掷骰相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Post("/throw", h.handleBegin)
		r.Delete("/throw", h.handleCancel)
		r.Get("/throw", h.handleStatus)
		r.Post("/throw/situation", h.handleSituation)
		r.Post("/throw/path", h.handleChoosePath)
		r.Get("/history", h.handleHistory)
	})
	r.Get("/ws/{userID}", h.handleWebSocket)
}

// situationRequest only checks presence; the length limit is the state machine's.
type situationRequest struct {
	Text string `json:"text" validate:"required"`
}

type pathRequest struct {
	Path string `json:"path" validate:"required,max=32"`
}

func (h *Handler) handleBegin(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Begin(context.WithoutCancel(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Cancel(context.WithoutCancel(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.svc.Status(chi.URLParam(r, "userID")))
}

func (h *Handler) handleSituation(w http.ResponseWriter, r *http.Request) {
	var payload situationRequest
	if !h.decode(w, r, &payload) {
		return
	}

	res, err := h.svc.SubmitSituation(context.WithoutCancel(r.Context()), chi.URLParam(r, "userID"), payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleChoosePath(w http.ResponseWriter, r *http.Request) {
	var payload pathRequest
	if !h.decode(w, r, &payload) {
		return
	}

	res, err := h.svc.ChoosePath(context.WithoutCancel(r.Context()), chi.URLParam(r, "userID"), payload.Path)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.RespondCodedError(w, http.StatusBadRequest, string(throwService.OutcomeValidation), "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.ListByUser(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		h.logger.Error("list history failed", zap.Error(err))
		utils.RespondCodedError(w, http.StatusServiceUnavailable, string(throwService.OutcomePersistenceUnavailable), "history unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, records)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondCodedError(w, http.StatusBadRequest, string(throwService.OutcomeValidation), "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		utils.RespondCodedError(w, http.StatusBadRequest, string(throwService.OutcomeValidation), validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "max":
			return fe.Field() + " is too long"
		}
		return fe.Field() + " is invalid"
	}
	return "invalid request"
}

// StatusFor maps an outcome to its HTTP status code.
func StatusFor(outcome throwService.Outcome) int {
	switch outcome {
	case throwService.OutcomeOK:
		return http.StatusOK
	case throwService.OutcomeInvalidTransition:
		return http.StatusConflict
	case throwService.OutcomeValidation:
		return http.StatusBadRequest
	case throwService.OutcomePersistenceUnavailable, throwService.OutcomeGenerationUnavailable:
		return http.StatusServiceUnavailable
	case throwService.OutcomeBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status, body := h.errorBody(err)
	utils.RespondJSON(w, status, body)
}

// errorBody renders err for clients. Storage and model errors are not exposed verbatim.
func (h *Handler) errorBody(err error) (int, utils.ErrorBody) {
	outcome := throwService.OutcomeOf(err)
	message := err.Error()
	switch outcome {
	case throwService.OutcomePersistenceUnavailable:
		message = "storage is temporarily unavailable, please try again"
	case throwService.OutcomeGenerationUnavailable:
		message = "the interpretation could not be generated, please start a new throw"
	case throwService.OutcomeInternal:
		h.logger.Error("throw event failed", zap.Error(err))
		message = "internal error"
	}
	return StatusFor(outcome), utils.ErrorBody{Error: message, Code: string(outcome)}
}
