// Package mothership 实现与外部权威对账服务的同步调用。
// 管线提交决策后，由对账服务返回权威仓位快照；拉取快照失败不会中断管线。
package mothership

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"strategy-api/internal/config"
	"strategy-api/internal/model"
)

// ErrRemote 表示对账服务返回了业务层错误。
var ErrRemote = errors.New("mothership remote error")

// Client 负责与对账服务交互并实现显式的超时与重试策略。
// 默认 max_attempts=1，即明确的"不重试"策略；重试需显式配置。
type Client struct {
	cfg        config.MothershipConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewClient 构造对账服务客户端。
func NewClient(cfg config.MothershipConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("mothership base_url 不能为空")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("mothership api_key 不能为空")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("mothership base_url 非法: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type makeTradeRequest struct {
	ID     string           `json:"id"`
	Trades []model.Decision `json:"trades"`
}

type makeTradeResponse struct {
	Positions []model.Position `json:"Positions"`
	Error     string           `json:"error"`
}

// MakeTrade 提交决策并返回权威仓位快照。
// 返回 (nil, nil) 表示对账服务未给出快照，调用方应保留本地仓位。
func (c *Client) MakeTrade(ctx context.Context, tradeID string, decisions []model.Decision) ([]model.Position, error) {
	body, err := json.Marshal(makeTradeRequest{
		ID:     tradeID,
		Trades: decisions,
	})
	if err != nil {
		return nil, fmt.Errorf("mothership: 序列化决策失败: %w", err)
	}

	var result makeTradeResponse
	err = c.callWithRetry(ctx, "make_trade", func() error {
		return c.doJSON(ctx, http.MethodPost, c.endpoint("/make_trade"), body, &result)
	})
	if err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, result.Error)
	}

	return result.Positions, nil
}

// Positions 拉取对账服务当前的权威仓位，用于看板展示。
func (c *Client) Positions(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := c.callWithRetry(ctx, "positions", func() error {
		return c.doJSON(ctx, http.MethodGet, c.endpoint("/positions"), nil, &positions)
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, dst interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("mothership: 构造请求失败: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mothership: 请求 %s 失败: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mothership: 读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{
			status: resp.StatusCode,
			body:   strings.TrimSpace(string(data)),
		}
	}

	if dst != nil && len(data) > 0 {
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("mothership: 解析响应失败: %w", err)
		}
	}

	return nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("mothership: 服务返回 %d", e.status)
	}
	return fmt.Sprintf("mothership: 服务返回 %d: %s", e.status, e.body)
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	attempt := 0
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("对账服务调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		if !isRetryable(err) || attempt >= maxAttempts {
			c.logger.Error("对账服务调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(err),
			)
			return err
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("对账服务调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.status == http.StatusTooManyRequests || statusErr.status >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
