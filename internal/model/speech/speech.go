package speech

import (
	"time"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

// Request 一次整段语音识别请求。
type Request struct {
	SessionID string
	Audio     []byte
	Format    string // pcm, wav
	Language  string // de-DE
}

// Result 语音识别结果
type Result struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Duration  int64     `json:"duration"` // milliseconds
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Inbound message types sent by the browser over the speech websocket.
const (
	InboundStart = "start"
	InboundAudio = "audio"
	InboundStop  = "stop"
	InboundText  = "text"
)

// Outbound message types.
const (
	OutboundTranscript = "transcript"
	OutboundState      = "state"
	OutboundQuestions  = "questions"
	OutboundReport     = "report"
	OutboundError      = "error"
)

// AudioChunk 录音片段，AudioData 在 JSON 中为 base64。
type AudioChunk struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	Language  string `json:"language"`
}

// StartOptions 开始录音时的可选参数。
type StartOptions struct {
	Format   string `json:"format"`
	Language string `json:"language"`
}

// TextInput 手动输入的文本。
type TextInput struct {
	Text string `json:"text"`
}

// TranscriptUpdate 推送给前端的转写文本。
type TranscriptUpdate struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ReportPayload 报告完成后推送。
type ReportPayload struct {
	Report *report.Report `json:"report"`
}
