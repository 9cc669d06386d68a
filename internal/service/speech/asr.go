package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/sirius-report/backend/internal/config"
	speechmodel "github.com/zhouzirui/sirius-report/backend/internal/model/speech"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

const (
	defaultASREndpoint = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"
	// 16kHz, 16bit, mono, 200ms
	audioChunkBytes = 6400
	successCode     = 20000000
)

// Recognizer 整段音频转写。
type Recognizer interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Result, error)
}

// ASRClient 火山引擎大模型 ASR WebSocket 客户端
type ASRClient struct {
	cfg           config.SpeechConfig
	endpoint      string
	dialer        *websocket.Dialer
	chunkInterval time.Duration
	l             log.Logger
}

var _ Recognizer = (*ASRClient)(nil)

// NewASRClient creates a client. A ws:// or wss:// BaseURL overrides the endpoint.
func NewASRClient(cfg config.SpeechConfig, l log.Logger) *ASRClient {
	if l == nil {
		l = log.NewNop()
	}
	endpoint := defaultASREndpoint
	if base := strings.TrimSpace(cfg.BaseURL); strings.HasPrefix(base, "ws://") || strings.HasPrefix(base, "wss://") {
		endpoint = base
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ASRClient{
		cfg:           cfg,
		endpoint:      endpoint,
		dialer:        &websocket.Dialer{HandshakeTimeout: timeout},
		chunkInterval: 200 * time.Millisecond,
		l:             l,
	}
}

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// TranscribeBuffer 建立一次连接，发送整段音频并等待最终结果。
func (c *ASRClient) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio data to send")
	}

	appID, token, err := resolveCredentials(c.cfg)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID(c.cfg))
	header.Set("X-Api-Connect-Id", sessionID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()

	if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
		c.l.Debugf(ctx, "[asr] connected session=%s logid=%s", sessionID, logid)
	}

	req := speechmodel.Request{SessionID: sessionID, Audio: audio, Format: format, Language: language}
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	compressed, err := gzipBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(newConfigFrame(compressed))); err != nil {
		return nil, fmt.Errorf("failed to send ASR request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 关闭连接以打断阻塞的 ReadMessage
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- c.sendAudio(ctx, conn, audio)
	}()

	type outcome struct {
		result *speechmodel.Result
		err    error
	}
	recv := make(chan outcome, 1)
	go func() {
		res, err := c.receive(conn, sessionID)
		recv <- outcome{res, err}
	}()

	for {
		select {
		case err := <-sendErr:
			if err != nil {
				return nil, fmt.Errorf("failed to send audio data: %w", err)
			}
			sendErr = nil
		case out := <-recv:
			if out.err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return out.result, out.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *ASRClient) buildRequest(req speechmodel.Request) *asrRequest {
	r := &asrRequest{}
	r.User.UID = req.SessionID

	r.Audio.Format = req.Format
	if r.Audio.Format == "" {
		r.Audio.Format = "pcm"
	}
	r.Audio.Language = req.Language
	if r.Audio.Language == "" {
		r.Audio.Language = c.cfg.ASRLanguage
	}
	r.Audio.Codec = "raw"
	r.Audio.Rate = 16000
	r.Audio.Bits = 16
	r.Audio.Channel = 1

	r.Request.ModelName = c.cfg.ASRModel
	if r.Request.ModelName == "" {
		r.Request.ModelName = "bigmodel"
	}
	r.Request.EnableITN = true
	r.Request.EnablePunc = true
	r.Request.ShowUtterances = true
	r.Request.ResultType = "full"
	r.Request.EndWindowSize = 800
	return r
}

// sendAudio 按 200ms 分包发送，序号从 2 开始（1 为首帧）。
func (c *ASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	sequence := int32(2)
	for start := 0; start < len(audio); start += audioChunkBytes {
		end := start + audioChunkBytes
		if end > len(audio) {
			end = len(audio)
		}
		last := end == len(audio)

		chunk, err := gzipBytes(audio[start:end])
		if err != nil {
			return fmt.Errorf("failed to compress audio chunk: %w", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(newAudioFrame(chunk, sequence, last))); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		sequence++

		if last {
			return nil
		}
		if c.chunkInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.chunkInterval):
			}
		}
	}
	return nil
}

func (c *ASRClient) receive(conn *websocket.Conn, sessionID string) (*speechmodel.Result, error) {
	var (
		text     string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch frame.Header.MessageType {
		case ErrorMessage:
			payload, _ := frame.payload()
			return nil, fmt.Errorf("ASR error %d: %s", frame.ErrorCode, string(payload))

		case FullServerResponse:
			payload, err := frame.payload()
			if err != nil {
				return nil, fmt.Errorf("failed to decompress ASR payload: %w", err)
			}

			var msg asrServerMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				c.l.Warnf(context.Background(), "[asr] failed to unmarshal response: %v", err)
				continue
			}
			if msg.Code != 0 && msg.Code != successCode {
				return nil, fmt.Errorf("ASR API error %d: %s", msg.Code, msg.Message)
			}

			candidate := msg.Result.Text
			if candidate == "" {
				candidate = joinUtterances(msg.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}

			if frame.IsLast() || msg.Sequence < 0 {
				return &speechmodel.Result{
					SessionID: sessionID,
					Text:      text,
					Duration:  duration,
					RequestID: sessionID,
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
