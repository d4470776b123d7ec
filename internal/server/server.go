// Package server 提供 HTTP 接入层：tick 接口、健康检查、看板与监控事件查询。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"strategy-api/internal/auditlog"
	"strategy-api/internal/config"
	"strategy-api/internal/ledger"
	"strategy-api/internal/model"
	"strategy-api/internal/monitor"
	"strategy-api/internal/pipeline"
	"strategy-api/internal/validate"
)

// 请求体上限，防止异常大包拖垮进程。
const maxBodyBytes = 4 << 20

// RemotePositions 为看板提供对账服务侧的权威仓位。
type RemotePositions interface {
	Positions(ctx context.Context) ([]model.Position, error)
}

// Server 组装全部 HTTP 路由。
type Server struct {
	cfg      config.ServerConfig
	pipeline *pipeline.Pipeline
	ledger   *ledger.Ledger
	tradeLog *auditlog.TradeLog
	remote   RemotePositions
	monitor  *monitor.Service
	logger   *zap.Logger
}

// New 创建 Server。
func New(
	cfg config.ServerConfig,
	pipe *pipeline.Pipeline,
	ledger *ledger.Ledger,
	tradeLog *auditlog.TradeLog,
	remote RemotePositions,
	monitorSvc *monitor.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		pipeline: pipe,
		ledger:   ledger,
		tradeLog: tradeLog,
		remote:   remote,
		monitor:  monitorSvc,
		logger:   logger,
	}
}

// Handler 返回完整路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("GET /healthcheck", s.requireAPIKey(s.handleHealthcheck))
	mux.HandleFunc("POST /tick/{trade_id}", s.requireAPIKey(s.handleTick))
	mux.HandleFunc("POST /tick", s.requireAPIKey(s.handleStreamTick))
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /events", s.requireAPIKey(s.handleEvents))

	return mux
}

// requireAPIKey 校验 apikey 请求头。
// 服务端未配置密钥按配置错误返回 500，密钥不匹配返回 401。
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			s.writeFailure(w, http.StatusInternalServerError, "Server API key not configured")
			return
		}
		if r.Header.Get("apikey") != s.cfg.APIKey {
			s.writeFailure(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

type tickResponse struct {
	Result    string           `json:"result"`
	Summary   pipeline.Summary `json:"summary"`
	Decisions []model.Decision `json:"decisions"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	tradeID := r.PathValue("trade_id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, "Invalid JSON data")
		return
	}

	payload, err := validate.TickPayload(body)
	if err != nil {
		// 校验失败不触碰账本也不写审计。
		s.logger.Info("tick 载荷校验失败",
			zap.String("trade_id", tradeID),
			zap.Error(err),
		)
		s.writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.ProcessTick(r.Context(), tradeID, payload)
	if err != nil {
		s.logger.Error("tick 处理失败",
			zap.String("trade_id", tradeID),
			zap.Error(err),
		)
		if s.monitor != nil {
			s.monitor.RecordError(r.Context(), "tick 处理失败", err, map[string]interface{}{"trade_id": tradeID})
		}
		// 原型行为：顶层兜底将原始错误串透出给调用方。
		s.writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, tickResponse{
		Result:    "success",
		Summary:   result.Summary,
		Decisions: result.Decisions,
	})
}

type streamResponse struct {
	Result        string       `json:"result"`
	Action        model.Action `json:"action"`
	PreviousPrice *float64     `json:"previous_price,omitempty"`
}

func (s *Server) handleStreamTick(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, "Invalid JSON data")
		return
	}

	tick, err := validate.StreamTick(body)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.ProcessStream(r.Context(), tick)
	if err != nil {
		s.logger.Error("行情流处理失败",
			zap.String("ticker", tick.Ticker),
			zap.Error(err),
		)
		s.writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := streamResponse{
		Result: "success",
		Action: result.Action,
	}
	if !result.FirstSight {
		prev := result.PreviousPrice
		resp.PreviousPrice = &prev
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeFailure(w, http.StatusNotFound, "monitor disabled")
		return
	}

	q := r.URL.Query()
	limit := 200
	if qs := q.Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			if v > 1000 {
				v = 1000
			}
			limit = v
		}
	}

	eventType := monitor.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = monitor.EventType(strings.ToLower(typ))
	}

	events, err := s.monitor.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		s.writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

type failureResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (s *Server) writeFailure(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, failureResponse{
		Result: "failure",
		Error:  message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Warn("写入响应失败", zap.Error(err))
	}
}
