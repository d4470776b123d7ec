package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"strategy-api/internal/ai"
	"strategy-api/internal/auditlog"
	"strategy-api/internal/config"
	"strategy-api/internal/ledger"
	"strategy-api/internal/monitor"
	"strategy-api/internal/mothership"
	"strategy-api/internal/pipeline"
	"strategy-api/internal/server"
	"strategy-api/internal/store"
	"strategy-api/internal/strategy"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 组装管线与 HTTP 服务并阻塞运行，直至收到退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("策略服务已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("engine", a.cfg.Strategy.Engine),
		zap.Int("port", a.cfg.Server.Port),
	)

	dataDir := a.cfg.Storage.DataDir
	positionsFile := store.NewJSONFile(filepath.Join(dataDir, a.cfg.Storage.PositionsFile), a.logger)
	tradeLogFile := store.NewJSONFile(filepath.Join(dataDir, a.cfg.Storage.TradeLogFile), a.logger)
	transactionFile := store.NewJSONFile(filepath.Join(dataDir, a.cfg.Storage.TransactionFile), a.logger)

	positionLedger := ledger.New(positionsFile, a.logger)
	tradeLog := auditlog.NewTradeLog(tradeLogFile, a.logger)
	transactions := auditlog.NewTransactionLog(transactionFile, a.logger)

	monitorSvc, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化监控服务失败: %w", err)
	}

	reconciler, err := mothership.NewClient(a.cfg.Mothership, a.logger)
	if err != nil {
		return fmt.Errorf("初始化对账客户端失败: %w", err)
	}

	recommender, err := a.newRecommender()
	if err != nil {
		return err
	}

	direction := strategy.NewDirection(transactions, a.logger)

	pipe, err := pipeline.New(pipeline.Params{
		Ledger:      positionLedger,
		Recommender: recommender,
		Engine:      a.cfg.Strategy.Engine,
		Reconciler:  reconciler,
		TradeLog:    tradeLog,
		Direction:   direction,
		Monitor:     monitorSvc,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("初始化管线失败: %w", err)
	}

	srv := server.New(a.cfg.Server, pipe, positionLedger, tradeLog, reconciler, monitorSvc, a.logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.logger.Info("HTTP 服务已启动", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务异常: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a.logger.Info("系统收到退出信号，正在停止")
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	a.logger.Info("系统已安全退出")
	return nil
}

func (a *App) newRecommender() (pipeline.Recommender, error) {
	engine := strings.ToLower(strings.TrimSpace(a.cfg.Strategy.Engine))
	switch engine {
	case config.EngineRule:
		rule := strategy.NewRule(a.cfg.Strategy)
		return strategy.NewRuleRecommender(rule, a.logger), nil
	case config.EngineAI, "":
		client, err := ai.NewClient(a.cfg.OpenAI, a.logger)
		if err != nil {
			return nil, fmt.Errorf("初始化AI客户端失败: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("未知的推荐引擎: %s", a.cfg.Strategy.Engine)
	}
}
