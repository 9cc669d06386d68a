package speech

import (
	"context"

	"github.com/zhouzirui/sirius-report/backend/internal/config"
	speechmodel "github.com/zhouzirui/sirius-report/backend/internal/model/speech"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

// Service 语音服务：持有识别客户端并为每次录音创建 Capture。
type Service struct {
	cfg config.SpeechConfig
	rec Recognizer
	l   log.Logger
}

// NewService creates a service backed by the Volcengine ASR client.
func NewService(cfg config.SpeechConfig, l log.Logger) *Service {
	return NewServiceWithRecognizer(cfg, NewASRClient(cfg, l), l)
}

// NewServiceWithRecognizer allows swapping the recognizer, e.g. in tests.
func NewServiceWithRecognizer(cfg config.SpeechConfig, rec Recognizer, l log.Logger) *Service {
	if l == nil {
		l = log.NewNop()
	}
	return &Service{cfg: cfg, rec: rec, l: l}
}

// TranscribeBuffer 语音转文字（使用字节数组）
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Result, error) {
	if language == "" {
		language = s.cfg.ASRLanguage
	}
	return s.rec.TranscribeBuffer(ctx, sessionID, audio, format, language)
}

// NewCapture creates a capture for one dictation.
func (s *Service) NewCapture(sessionID string, start speechmodel.StartOptions, onError func(error)) *Capture {
	language := start.Language
	if language == "" {
		language = s.cfg.ASRLanguage
	}
	return NewCapture(s.rec, CaptureOptions{
		SessionID:    sessionID,
		Format:       start.Format,
		Language:     language,
		PartialBytes: s.cfg.PartialBytes,
		OnError:      onError,
	}, s.l)
}
