package server

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"strategy-api/internal/model"
)

const dashboardTimeout = 5 * time.Second

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Trading Dashboard</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
        h1 { color: #333; }
        h2 { color: #555; margin-top: 30px; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; background-color: white; }
        th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
        th { background-color: #4CAF50; color: white; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .section { margin-top: 30px; background-color: white; padding: 20px; border-radius: 5px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>Trading Dashboard</h1>

    <div class="section">
        <h2>Mothership Current Positions</h2>
        {{ if .RemoteError }}
            <p class="error">Error fetching mothership positions: {{ .RemoteError }}</p>
        {{ else if .RemotePositions }}
            <table>
                <tr><th>Ticker</th><th>Quantity</th><th>Purchase Price</th></tr>
                {{ range .RemotePositions }}
                <tr>
                    <td><strong>{{ .Ticker }}</strong></td>
                    <td>{{ .Quantity }}</td>
                    <td>${{ printf "%.2f" .PurchasePrice }}</td>
                </tr>
                {{ end }}
            </table>
        {{ else }}
            <p>No positions found on mothership.</p>
        {{ end }}
    </div>

    <div class="section">
        <h2>Local Positions</h2>
        {{ if .Positions }}
        <table>
            <tr><th>Ticker</th><th>Quantity</th><th>Purchase Price</th><th>Current Price</th><th>Unrealized P&amp;L</th></tr>
            {{ range .Positions }}
            <tr>
                <td><strong>{{ .Ticker }}</strong></td>
                <td>{{ .Quantity }}</td>
                <td>${{ printf "%.2f" .PurchasePrice }}</td>
                <td>${{ printf "%.2f" .CurrentPrice }}</td>
                <td>${{ printf "%.2f" .UnrealizedPnL }}</td>
            </tr>
            {{ end }}
        </table>
        {{ else }}
            <p>No local positions recorded yet.</p>
        {{ end }}
    </div>

    <div class="section">
        <h2>Recent Trading Log</h2>
        {{ if .TradeLog }}
        <table>
            <tr><th>Timestamp</th><th>Trade ID</th><th>Day</th><th>P&amp;L</th><th>Decisions</th></tr>
            {{ range .TradeLog }}
            <tr>
                <td>{{ .Timestamp.Format "2006-01-02T15:04:05Z07:00" }}</td>
                <td>{{ .TradeID }}</td>
                <td>{{ .Day }}</td>
                <td>${{ printf "%.2f" .UnrealizedPnL }}</td>
                <td>{{ len .Decisions }} trades</td>
            </tr>
            {{ end }}
        </table>
        {{ else }}
            <p>No trading activity recorded yet.</p>
        {{ end }}
    </div>
</body>
</html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

type dashboardData struct {
	RemotePositions []model.Position
	RemoteError     string
	Positions       []model.Position
	TradeLog        []model.LogEntry
}

// handleDashboard 渲染本地账本、审计日志与对账服务侧仓位。不做鉴权。
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	data := dashboardData{
		Positions: s.ledger.Positions(),
		TradeLog:  s.tradeLog.Recent(10),
	}

	// 远端仓位拉取失败只影响看板的一个分区。
	remote, err := s.remote.Positions(ctx)
	if err != nil {
		data.RemoteError = err.Error()
		s.logger.Warn("拉取对账服务仓位失败", zap.Error(err))
	} else {
		data.RemotePositions = remote
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Warn("渲染看板失败", zap.Error(err))
	}
}
