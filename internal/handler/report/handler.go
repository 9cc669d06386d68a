package report

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/sirius-report/backend/internal/handler/apierr"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
	"github.com/zhouzirui/sirius-report/backend/pkg/utils"
)

// Handler 报告存储的HTTP处理器
type Handler struct {
	store    report.Store
	pipeline *authoring.Pipeline
	l        log.Logger
	now      func() time.Time
}

// New 创建报告处理器；pipeline 为空时 /ask 返回 503。
func New(store report.Store, pipeline *authoring.Pipeline, l log.Logger) *Handler {
	if l == nil {
		l = log.NewNop()
	}
	return &Handler{store: store, pipeline: pipeline, l: l, now: time.Now}
}

// RegisterRoutes 注册报告相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/", h.handleList)
		rr.Get("/{reportID}", h.handleGet)
		rr.Delete("/{reportID}", h.handleDelete)
		rr.Post("/{reportID}/ask", h.handleAsk)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.List(r.Context())
	if err != nil {
		h.l.Errorf(r.Context(), "[report] list failed: %v", err)
		apierr.Write(w, err)
		return
	}

	if r.URL.Query().Get("grouped") == "true" {
		_ = utils.RespondJSON(w, http.StatusOK, report.GroupByDay(reports, h.now()))
		return
	}
	_ = utils.RespondJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	_ = utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")
	if err := h.store.Delete(r.Context(), id); err != nil {
		apierr.Write(w, err)
		return
	}
	h.l.Infof(r.Context(), "[report] deleted %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		_ = utils.RespondError(w, http.StatusServiceUnavailable, "text generation unavailable")
		return
	}

	var payload struct {
		Question string `json:"question"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		_ = utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		apierr.Write(w, authoring.ErrEmptyInput)
		return
	}

	answer, err := h.pipeline.AskAboutReport(r.Context(), chi.URLParam(r, "reportID"), payload.Question)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	_ = utils.RespondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
