package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"strategy-api/internal/config"
	"strategy-api/internal/model"
)

// 推荐函数的工具定义，约束模型输出为结构化的交易建议列表。
var tradingToolParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"trades": {
			"type": "array",
			"description": "List of trade recommendations",
			"items": {
				"type": "object",
				"properties": {
					"action": {
						"type": "string",
						"enum": ["BUY", "SELL", "STAY"],
						"description": "The trading action to take"
					},
					"ticker": {
						"type": "string",
						"description": "The stock ticker symbol"
					},
					"quantity": {
						"type": "integer",
						"description": "The quantity to trade (0 for STAY)"
					}
				},
				"required": ["action", "ticker", "quantity"]
			}
		}
	},
	"required": ["trades"]
}`)

// Client 封装 OpenAI 调用逻辑，作为推荐提供方接入管线。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建 AI 客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}
	sdkConfig.HTTPClient = httpClient
	client := openai.NewClientWithConfig(sdkConfig)

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    client,
	}, nil
}

// Recommend 将 tick 载荷交给模型并解析其工具调用结果。
// 模型未调用工具视为"无推荐"，返回空列表而非错误。
func (c *Client) Recommend(ctx context.Context, payload model.TickPayload, day string) ([]model.Decision, error) {
	if c.cfg.Model == "" {
		return nil, errors.New("openai model 不能为空")
	}

	prompt, err := BuildPrompt(payload, day)
	if err != nil {
		return nil, err
	}

	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        "make_trade_recommendation",
					Description: "Analyze stock data and recommend trading actions (BUY, SELL, or STAY) for each position",
					Parameters:  tradingToolParams,
				},
			},
		},
		ToolChoice: "auto",
	})
	if err != nil {
		c.logger.Error("调用OpenAI失败", zap.Error(err))
		return nil, fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("OpenAI 返回结果为空")
	}

	message := response.Choices[0].Message
	if len(message.ToolCalls) == 0 {
		c.logger.Warn("模型未调用推荐工具，视为无推荐")
		return nil, nil
	}

	decisions, err := parseToolCall(message.ToolCalls[0].Function.Arguments)
	if err != nil {
		c.logger.Error("解析模型推荐失败",
			zap.Error(err),
			zap.String("raw_arguments", message.ToolCalls[0].Function.Arguments),
		)
		return nil, err
	}

	c.logger.Info("AI 推荐生成成功", zap.Int("decisions", len(decisions)))
	return decisions, nil
}

type toolArguments struct {
	Trades []model.Decision `json:"trades"`
}

func parseToolCall(arguments string) ([]model.Decision, error) {
	var args toolArguments
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("解析推荐JSON失败: %w", err)
	}

	for i, decision := range args.Trades {
		if err := validateDecision(decision); err != nil {
			return nil, fmt.Errorf("第 %d 条推荐非法: %w", i, err)
		}
	}

	return args.Trades, nil
}

var validActions = map[model.Action]struct{}{
	model.ActionBuy:  {},
	model.ActionSell: {},
	model.ActionStay: {},
}

func validateDecision(d model.Decision) error {
	if strings.TrimSpace(d.Ticker) == "" {
		return errors.New("ticker 不能为空")
	}
	if _, ok := validActions[d.Action]; !ok {
		return fmt.Errorf("action 字段取值非法: %s", d.Action)
	}
	if d.Quantity < 0 {
		return fmt.Errorf("quantity 不能为负，当前为 %d", d.Quantity)
	}
	return nil
}
