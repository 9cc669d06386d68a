package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
	speechmodel "github.com/zhouzirui/sirius-report/backend/internal/model/speech"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	speechsvc "github.com/zhouzirui/sirius-report/backend/internal/service/speech"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 录音与会话推送的 WebSocket 处理器
type WebSocketHandler struct {
	speechSvc SpeechService
	registry  *authoring.Registry
	upgrader  websocket.Upgrader
	l         log.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(speechSvc SpeechService, registry *authoring.Registry, l log.Logger) *WebSocketHandler {
	if l == nil {
		l = log.NewNop()
	}
	return &WebSocketHandler{
		speechSvc: speechSvc,
		registry:  registry,
		l:         l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// wsConn 串行化写操作，gorilla 不支持并发写。
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

type connection struct {
	h       *WebSocketHandler
	ws      *wsConn
	session *authoring.Session

	mu      sync.Mutex
	capture *speechsvc.Capture
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.registry.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warnf(r.Context(), "[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.l.Infof(ctx, "[websocket] new connection for session: %s", sessionID)

	c := &connection{h: h, ws: &wsConn{conn: conn}, session: session}
	defer c.stopCapture()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go c.pingLoop(ctx)
	c.send(speechmodel.OutboundState, session.Snapshot())

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.l.Warnf(ctx, "[websocket] read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.handleMessage(ctx, &msg)
	}
}

func (c *connection) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case speechmodel.InboundStart:
		c.handleStart(ctx, msg.Data)
	case speechmodel.InboundAudio:
		c.handleAudio(msg.Data)
	case speechmodel.InboundStop:
		c.handleStop(ctx)
	case speechmodel.InboundText:
		var input speechmodel.TextInput
		if err := json.Unmarshal(msg.Data, &input); err != nil {
			c.sendError("invalid text payload")
			return
		}
		go c.submit(ctx, input.Text)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (c *connection) handleStart(ctx context.Context, raw json.RawMessage) {
	if c.h.speechSvc == nil {
		c.sendError("speech recognition unavailable")
		return
	}

	var opts speechmodel.StartOptions
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			c.sendError("invalid start payload")
			return
		}
	}

	snap, err := c.session.BeginRecording()
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.mu.Lock()
	if c.capture == nil || !c.capture.Running() {
		c.capture = c.h.speechSvc.NewCapture(c.session.ID(), opts, func(err error) {
			c.sendError("speech recognition failed: " + err.Error())
			c.send(speechmodel.OutboundState, c.session.CancelRecording())
		})
	}
	capture := c.capture
	c.mu.Unlock()

	if err := capture.Start(ctx); err != nil {
		c.sendError(err.Error())
		return
	}
	go c.forwardTranscripts(capture.Updates())
	c.send(speechmodel.OutboundState, snap)
}

func (c *connection) handleAudio(raw json.RawMessage) {
	var chunk speechmodel.AudioChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		c.sendError("invalid audio payload")
		return
	}

	c.mu.Lock()
	capture := c.capture
	c.mu.Unlock()
	if capture == nil {
		c.sendError("recording not started")
		return
	}
	if err := capture.Feed(chunk.AudioData); err != nil {
		c.sendError(err.Error())
	}
}

func (c *connection) handleStop(ctx context.Context) {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.mu.Unlock()
	if capture == nil {
		c.sendError("recording not started")
		return
	}

	text := capture.Stop()
	c.send(speechmodel.OutboundTranscript, speechmodel.TranscriptUpdate{Text: text, Final: true})
	if text == "" {
		c.send(speechmodel.OutboundState, c.session.CancelRecording())
		return
	}
	go c.submit(ctx, text)
}

// submit 等待回答时作为回答，否则作为新的描述提交。
func (c *connection) submit(ctx context.Context, text string) {
	observer := authoring.WithObserver(func(ev authoring.Event) {
		switch ev.Type {
		case authoring.EventState:
			c.send(speechmodel.OutboundState, map[string]chat.State{"state": ev.State})
		case authoring.EventQuestions:
			c.send(speechmodel.OutboundQuestions, map[string][]string{"questions": ev.Questions})
		case authoring.EventReport:
			c.send(speechmodel.OutboundReport, speechmodel.ReportPayload{Report: ev.Report})
		}
	})

	var err error
	if c.session.State() == chat.StateWaitingForAnswer {
		_, err = c.session.SubmitAnswer(ctx, text, observer)
	} else {
		_, err = c.session.SubmitDescription(ctx, text, observer)
	}
	if err != nil {
		c.h.l.Warnf(ctx, "[websocket] session %s: %v", c.session.ID(), err)
		c.sendError(err.Error())
	}
}

func (c *connection) forwardTranscripts(updates <-chan string) {
	for text := range updates {
		c.send(speechmodel.OutboundTranscript, speechmodel.TranscriptUpdate{Text: text})
	}
}

func (c *connection) stopCapture() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.mu.Unlock()
	if capture != nil {
		capture.Stop()
	}
}

func (c *connection) send(msgType string, data any) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.session.ID(),
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := c.ws.writeJSON(msg); err != nil {
		c.h.l.Debugf(context.Background(), "[websocket] write %s failed: %v", msgType, err)
	}
}

func (c *connection) sendError(message string) {
	c.send(speechmodel.OutboundError, map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func (c *connection) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ws.ping(); err != nil {
				return
			}
		}
	}
}
