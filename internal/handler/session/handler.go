package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/sirius-report/backend/internal/handler/apierr"
	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
	"github.com/zhouzirui/sirius-report/backend/pkg/utils"
)

// Handler 报告会话的HTTP处理器
type Handler struct {
	registry *authoring.Registry
	l        log.Logger
}

// New 创建会话处理器
func New(registry *authoring.Registry, l log.Logger) *Handler {
	if l == nil {
		l = log.NewNop()
	}
	return &Handler{registry: registry, l: l}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", h.handleCreate)
		sr.Get("/", h.handleList)
		sr.Get("/{sessionID}", h.handleGet)
		sr.Delete("/{sessionID}", h.handleDelete)
		sr.Post("/{sessionID}/description", h.handleDescription)
		sr.Post("/{sessionID}/answer", h.handleAnswer)
		sr.Post("/{sessionID}/reset", h.handleReset)
	})
}

type textPayload struct {
	Text string `json:"text"`
}

type errorEvent struct {
	Error    string        `json:"error"`
	Status   int           `json:"status"`
	Snapshot chat.Snapshot `json:"snapshot"`
}

type operation func(s *authoring.Session, ctx context.Context, text string, opts ...authoring.Option) (chat.Snapshot, error)

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create()
	h.l.Infof(r.Context(), "[session] created %s", s.ID())
	_ = utils.RespondJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	_ = utils.RespondJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	_ = utils.RespondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		apierr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	_ = utils.RespondJSON(w, http.StatusOK, s.Reset())
}

func (h *Handler) handleDescription(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, (*authoring.Session).SubmitDescription)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, (*authoring.Session).SubmitAnswer)
}

// submit 运行一次会话操作；?stream=true 时以 SSE 推送进度。
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, op operation) {
	s, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	var payload textPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		_ = utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		apierr.Write(w, authoring.ErrEmptyInput)
		return
	}

	ctx := r.Context()
	if r.URL.Query().Get("stream") != "true" {
		snap, err := op(s, ctx, payload.Text)
		if err != nil {
			h.l.Warnf(ctx, "[session] %s: %v", s.ID(), err)
			_ = utils.RespondJSON(w, apierr.Status(err), errorEvent{Error: err.Error(), Status: apierr.Status(err), Snapshot: snap})
			return
		}
		_ = utils.RespondJSON(w, http.StatusOK, snap)
		return
	}

	sse, ok := utils.NewSSEWriter(w)
	if !ok {
		_ = utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	observer := authoring.WithObserver(func(ev authoring.Event) {
		if err := sse.Event(string(ev.Type), ev); err != nil {
			h.l.Debugf(ctx, "[session] sse write failed: %v", err)
		}
	})

	snap, err := op(s, ctx, payload.Text, observer)
	if err != nil {
		h.l.Warnf(ctx, "[session] %s: %v", s.ID(), err)
		_ = sse.Event("error", errorEvent{Error: err.Error(), Status: apierr.Status(err), Snapshot: snap})
	}
	_ = sse.Event("end", snap)
}
