package speech

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/zhouzirui/sirius-report/backend/internal/model/speech"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	speechsvc "github.com/zhouzirui/sirius-report/backend/internal/service/speech"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
	"github.com/zhouzirui/sirius-report/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Result, error)
	NewCapture(sessionID string, start speechmodel.StartOptions, onError func(error)) *speechsvc.Capture
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	registry  *authoring.Registry
	l         log.Logger
}

// New 创建语音处理器；speechSvc 为空时仅支持文本输入。
func New(speechSvc SpeechService, registry *authoring.Registry, l log.Logger) *Handler {
	if l == nil {
		l = log.NewNop()
	}
	return &Handler{speechSvc: speechSvc, registry: registry, l: l}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(sr chi.Router) {
		sr.Post("/transcribe", h.handleTranscribe)
		sr.Get("/health", h.handleHealth)

		ws := NewWebSocketHandler(h.speechSvc, h.registry, h.l)
		ws.RegisterWebSocketRoutes(sr)
	})
}

// handleTranscribe 处理整段音频上传转写
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.speechSvc == nil {
		_ = utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition unavailable")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		_ = utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		_ = utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		_ = utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		sessionID = "upload"
	}

	resp, err := h.speechSvc.TranscribeBuffer(r.Context(), sessionID, audio, inferAudioFormat(header.Filename), r.FormValue("language"))
	if err != nil {
		h.l.Errorf(r.Context(), "[speech] ASR error: %v", err)
		_ = utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}
	_ = utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"asr":    h.speechSvc != nil,
	})
}

func inferAudioFormat(filename string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext {
	case "wav", "pcm", "ogg", "mp3":
		return ext
	default:
		return "pcm"
	}
}
