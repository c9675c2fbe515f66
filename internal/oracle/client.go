package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"autotrader/internal/config"
)

// Transcript 保留一次顾问调用的原始输入输出，用于决策审计。
type Transcript struct {
	Prompt   string
	Response string
}

// Client 封装顾问模型调用逻辑。
type Client struct {
	cfg    config.OracleConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建顾问客户端。
func NewClient(cfg config.OracleConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	sdkCfg.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(sdkCfg),
	}, nil
}

// Advise 根据候选信号与市场上下文获取交易建议。
// 传输失败、解析失败、schema 校验失败都会返回错误，同时尽量带回 Transcript 供审计。
func (c *Client) Advise(ctx context.Context, input PromptInput) (Advisory, Transcript, error) {
	if c.cfg.Model == "" {
		return Advisory{}, Transcript{}, errors.New("oracle model 不能为空")
	}

	prompt, err := BuildPrompt(input)
	if err != nil {
		return Advisory{}, Transcript{}, err
	}
	transcript := Transcript{Prompt: prompt}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	response, err := c.sdk.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Error("调用顾问模型失败", zap.Error(err))
		return Advisory{}, transcript, fmt.Errorf("调用顾问模型失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return Advisory{}, transcript, errors.New("顾问模型返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	transcript.Response = rawContent
	if rawContent == "" {
		return Advisory{}, transcript, errors.New("顾问模型返回内容为空")
	}

	advisory, err := parseAdvisory(rawContent)
	if err != nil {
		c.logger.Error("解析顾问建议失败",
			zap.Error(err),
			zap.String("raw_content", rawContent),
		)
		return Advisory{}, transcript, err
	}

	if err := advisory.Validate(); err != nil {
		return Advisory{}, transcript, fmt.Errorf("顾问建议未通过校验: %w", err)
	}

	c.logger.Info("顾问建议生成成功",
		zap.String("direction", advisory.Direction),
		zap.Float64("size", advisory.Size),
		zap.Float64("confidence", advisory.Confidence),
	)

	return advisory, transcript, nil
}

func parseAdvisory(content string) (Advisory, error) {
	jsonPayload, err := extractJSON(content)
	if err != nil {
		return Advisory{}, err
	}

	var advisory Advisory
	if err = json.Unmarshal(jsonPayload, &advisory); err != nil {
		return Advisory{}, fmt.Errorf("解析建议JSON失败: %w", err)
	}

	return advisory, nil
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}
