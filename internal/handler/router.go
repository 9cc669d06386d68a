package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	reportHandler "github.com/zhouzirui/sirius-report/backend/internal/handler/report"
	sessionHandler "github.com/zhouzirui/sirius-report/backend/internal/handler/session"
	speechHandler "github.com/zhouzirui/sirius-report/backend/internal/handler/speech"
	middlewarePkg "github.com/zhouzirui/sirius-report/backend/internal/middleware"
	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
	"github.com/zhouzirui/sirius-report/backend/pkg/utils"
)

// Deps 路由依赖。Registry 为空时不注册会话与语音路由，Speech 为空时仅支持文本输入。
type Deps struct {
	Store    report.Store
	Registry *authoring.Registry
	Speech   speechHandler.SpeechService
	Logger   log.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	l := deps.Logger
	if l == nil {
		l = log.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var pipeline *authoring.Pipeline
	if deps.Registry != nil {
		pipeline = deps.Registry.Pipeline()
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			_ = utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":     "ok",
				"generation": pipeline != nil,
				"speech":     deps.Speech != nil,
			})
		})

		reportHandler.New(deps.Store, pipeline, l).RegisterRoutes(api)

		if deps.Registry != nil {
			sessionHandler.New(deps.Registry, l).RegisterRoutes(api)
			speechHandler.New(deps.Speech, deps.Registry, l).RegisterRoutes(api)
		}
	})

	return r
}
