package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/sirius-report/backend/internal/config"
	"github.com/zhouzirui/sirius-report/backend/pkg/log"
)

// Generator 文本生成能力：每次请求都是独立的单轮提示词，不保留对话记忆。
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Task, error)
}

// Service encapsulates the chat model behind a compiled eino chain.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	l         log.Logger
}

// NewService creates the Ark chat model from cfg and wraps it.
func NewService(ctx context.Context, cfg config.AIConfig, l log.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg, l)
}

// NewServiceWithModel wraps an already constructed chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig, l log.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if l == nil {
		l = log.NewNop()
	}

	// 原始提示词整体作为一条 system 消息发送
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
		l:         l,
	}, nil
}

// StreamingEnabled 指示是否使用流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// Generate starts a generation for promptText. The returned task owns the
// underlying stream; cancelling ctx or calling Task.Cancel tears it down.
func (s *Service) Generate(ctx context.Context, promptText string) (*Task, error) {
	input := map[string]any{"prompt": promptText}
	task, taskCtx := newTask(ctx)

	if !s.StreamingEnabled() {
		go func() {
			msg, err := s.chain.Invoke(taskCtx, input)
			if err != nil {
				task.finish(fmt.Errorf("failed to run AI chain: %w", err))
				return
			}
			if msg != nil && !task.emit(taskCtx, msg.Content) {
				task.finish(taskCtx.Err())
				return
			}
			task.finish(nil)
		}()
		return task, nil
	}

	stream, err := s.chain.Stream(taskCtx, input)
	if err != nil {
		task.Cancel()
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}

	s.l.Debugf(ctx, "[ai] stream opened, prompt length=%d", len(promptText))
	go task.pump(taskCtx, stream)
	return task, nil
}
