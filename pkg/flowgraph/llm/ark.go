package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
)

// ArkConfig configures an Ark (Volcengine) chat model.
type ArkConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ArkClient implements Client on top of an eino chat model.
type ArkClient struct {
	chat  model.BaseChatModel
	model string
}

// NewArkClient connects an Ark chat model.
func NewArkClient(ctx context.Context, cfg ArkConfig) (*ArkClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: ark api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: ark model is required")
	}

	arkCfg := &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		arkCfg.Timeout = &timeout
	}

	cm, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create ark chat model: %w", err)
	}
	return NewChatModelClient(cm, cfg.Model), nil
}

// NewChatModelClient adapts any eino chat model to Client.
// modelName is reported in CompletionResponse.Model.
func NewChatModelClient(chat model.BaseChatModel, modelName string) *ArkClient {
	return &ArkClient{chat: chat, model: modelName}
}

// Complete implements Client.
func (c *ArkClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	msg, err := c.chat.Generate(ctx, toSchemaMessages(req), c.options(req)...)
	if err != nil {
		return nil, &flowerrors.TransportError{Dependency: "llm", Op: "complete", Err: err}
	}
	if msg == nil {
		return nil, &flowerrors.EmptyResponseError{Dependency: "llm", Op: "complete"}
	}

	resp := &CompletionResponse{
		Content:  msg.Content,
		Model:    c.modelFor(req),
		Duration: time.Since(start),
	}
	if meta := msg.ResponseMeta; meta != nil {
		resp.FinishReason = meta.FinishReason
		if meta.Usage != nil {
			resp.Usage = TokenUsage{
				InputTokens:  meta.Usage.PromptTokens,
				OutputTokens: meta.Usage.CompletionTokens,
				TotalTokens:  meta.Usage.TotalTokens,
			}
		}
	}
	return resp, nil
}

func (c *ArkClient) modelFor(req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

func (c *ArkClient) options(req CompletionRequest) []model.Option {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	return opts
}

// toSchemaMessages converts a request into eino messages, system prompt first.
func toSchemaMessages(req CompletionRequest) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, schema.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	return msgs
}
