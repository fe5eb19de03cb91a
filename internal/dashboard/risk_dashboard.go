// Package dashboard provides real-time risk monitoring and visualization for the trading bot.
// It includes comprehensive risk metrics calculation, circuit breaker monitoring,
// and web-based dashboard interfaces for live trading oversight.
//
// The package provides both REST API endpoints and WebSocket streaming for
// real-time risk monitoring and alerting capabilities.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/qtraxis/livetrader/internal/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DataSource is the read-only view the dashboard needs. The orchestrator
// (or a thin adapter around it) implements this; the dashboard never
// touches PositionStore or the exchange directly.
type DataSource interface {
	Positions() []model.Position
	AccountStats() AccountStats
	CircuitBreakerStatus() map[string]bool
	CanTrade() (ok bool, reason string)
}

// AccountStats is the balance/drawdown picture CanTrade's gates are based
// on, pulled from the risk.PortfolioTracker's balances and the configured
// limits rather than recomputed here.
type AccountStats struct {
	InitialBalance        float64
	CurrentBalance        float64
	PeakBalance           float64
	DailyPnL              float64
	CurrentDrawdown       float64
	MaxDrawdownProtection float64
	DailyLossLimit        float64
}

// RiskMetrics represents all risk-related metrics for the dashboard.
// It provides comprehensive risk assessment including P&L tracking,
// drawdown monitoring, position exposure, and performance statistics.
type RiskMetrics struct {
	Timestamp time.Time `json:"timestamp"` // Timestamp of metrics collection

	// Account metrics
	InitialBalance float64 `json:"initialBalance"` // Starting account balance
	CurrentBalance float64 `json:"currentBalance"` // Current account balance
	PeakBalance    float64 `json:"peakBalance"`    // Peak account balance achieved
	DailyPnL       float64 `json:"dailyPnL"`       // Daily profit and loss

	// Risk protection status
	CurrentDrawdown       float64 `json:"currentDrawdown"`       // Current drawdown as a fraction of peak balance
	MaxDrawdownProtection float64 `json:"maxDrawdownProtection"` // Maximum allowed drawdown
	DailyLossLimit        float64 `json:"dailyLossLimit"`        // Daily loss limit as a fraction of initial balance
	DrawdownProtectionHit bool    `json:"drawdownProtectionHit"` // Whether drawdown protection triggered
	DailyLossLimitHit     bool    `json:"dailyLossLimitHit"`     // Whether daily loss limit hit

	// Position metrics
	ActivePositions map[string]float64 `json:"activePositions"` // Current positions by symbol, signed quantity
	TotalExposure   float64            `json:"totalExposure"`   // Total position exposure at entry price

	// Circuit breaker status
	CircuitBreakerStatus map[string]bool `json:"circuitBreakerStatus"` // Status of each circuit breaker
	CircuitBreakerActive bool            `json:"circuitBreakerActive"` // Whether any circuit breaker is active

	// Trading status
	CanTrade           bool   `json:"canTrade"`           // Whether trading is currently allowed
	TradingSuspendedBy string `json:"tradingSuspendedBy"` // Reason for trading suspension
}

// RiskDashboard provides real-time risk monitoring and visualization.
// It serves a web-based dashboard with WebSocket streaming for live updates
// of trading metrics, risk parameters, and system status.
type RiskDashboard struct {
	source           DataSource
	server           *http.Server              // HTTP server for dashboard
	upgrader         websocket.Upgrader        // WebSocket upgrader for real-time updates
	clients          map[*websocket.Conn]bool  // Connected WebSocket clients
	clientsMu        sync.RWMutex              // Mutex for client map access
	broadcastChannel chan RiskMetrics          // Channel for broadcasting metrics
	stopChannel      chan struct{}             // Channel for shutdown signaling
	isRunning        bool                      // Whether the dashboard is running
	mu               sync.RWMutex              // Mutex for dashboard state
}

// NewRiskDashboard creates a new risk dashboard with the specified configuration.
// It sets up HTTP routes, WebSocket handling, and initializes the server
// on the specified port. Returns a ready-to-start dashboard instance.
func NewRiskDashboard(source DataSource, port int) *RiskDashboard {
	dashboard := &RiskDashboard{
		source:           source,
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:          make(map[*websocket.Conn]bool),
		broadcastChannel: make(chan RiskMetrics, 100),
		stopChannel:      make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", dashboard.handleDashboard).Methods("GET")
	r.HandleFunc("/api/metrics", dashboard.handleMetricsAPI).Methods("GET")
	r.HandleFunc("/ws", dashboard.handleWebSocket).Methods("GET")

	dashboard.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return dashboard
}

// Start starts the risk dashboard server
func (rd *RiskDashboard) Start() error {
	rd.mu.Lock()
	defer rd.mu.Unlock()

	if rd.isRunning {
		return fmt.Errorf("risk dashboard is already running")
	}

	go rd.metricsCollector()
	go rd.clientBroadcaster()

	go func() {
		log.Info().
			Str("address", rd.server.Addr).
			Msg("starting risk dashboard server")

		if err := rd.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("risk dashboard server failed")
		}
	}()

	rd.isRunning = true
	return nil
}

// Stop stops the risk dashboard server
func (rd *RiskDashboard) Stop() error {
	rd.mu.Lock()
	defer rd.mu.Unlock()

	if !rd.isRunning {
		return nil
	}

	close(rd.stopChannel)

	rd.clientsMu.Lock()
	for client := range rd.clients {
		client.Close()
	}
	rd.clients = make(map[*websocket.Conn]bool)
	rd.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rd.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown risk dashboard server")
		return err
	}

	rd.isRunning = false
	return nil
}

func (rd *RiskDashboard) metricsCollector() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case rd.broadcastChannel <- rd.collectMetrics():
			default:
			}
		case <-rd.stopChannel:
			return
		}
	}
}

func (rd *RiskDashboard) clientBroadcaster() {
	for {
		select {
		case metrics := <-rd.broadcastChannel:
			rd.broadcastToClients(metrics)
		case <-rd.stopChannel:
			return
		}
	}
}

// collectMetrics gathers all risk metrics from the data source.
func (rd *RiskDashboard) collectMetrics() RiskMetrics {
	positions := rd.source.Positions()
	activePositions := make(map[string]float64, len(positions))
	totalExposure := 0.0
	for _, p := range positions {
		qty := p.Quantity
		if p.Side == model.SideShort {
			qty = -qty
		}
		activePositions[p.Symbol] = qty
		totalExposure += p.Quantity * p.EntryPrice
	}

	canTrade, suspendedBy := rd.source.CanTrade()
	circuitBreakerStatus := rd.source.CircuitBreakerStatus()
	circuitBreakerActive := false
	for _, active := range circuitBreakerStatus {
		if active {
			circuitBreakerActive = true
			break
		}
	}

	stats := rd.source.AccountStats()

	return RiskMetrics{
		Timestamp:             time.Now(),
		InitialBalance:        stats.InitialBalance,
		CurrentBalance:        stats.CurrentBalance,
		PeakBalance:           stats.PeakBalance,
		DailyPnL:              stats.DailyPnL,
		CurrentDrawdown:       stats.CurrentDrawdown,
		MaxDrawdownProtection: stats.MaxDrawdownProtection,
		DailyLossLimit:        stats.DailyLossLimit,
		DrawdownProtectionHit: stats.CurrentDrawdown >= stats.MaxDrawdownProtection,
		DailyLossLimitHit:     stats.InitialBalance > 0 && -stats.DailyPnL/stats.InitialBalance >= stats.DailyLossLimit,
		ActivePositions:       activePositions,
		TotalExposure:         totalExposure,
		CircuitBreakerStatus:  circuitBreakerStatus,
		CircuitBreakerActive:  circuitBreakerActive,
		CanTrade:              canTrade,
		TradingSuspendedBy:    suspendedBy,
	}
}

func (rd *RiskDashboard) broadcastToClients(metrics RiskMetrics) {
	rd.clientsMu.RLock()
	defer rd.clientsMu.RUnlock()

	data, err := json.Marshal(metrics)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal metrics for broadcast")
		return
	}

	for client := range rd.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			client.Close()
			delete(rd.clients, client)
		}
	}
}

// handleDashboard serves the main dashboard HTML page
func (rd *RiskDashboard) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <title>Live Trading Orchestrator - Risk Dashboard</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1400px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0; font-size: 2.2em; text-align: center; }
        .status-bar { display: flex; justify-content: space-between; align-items: center; background: white; padding: 15px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .status-indicator { display: flex; align-items: center; font-weight: bold; }
        .status-dot { width: 12px; height: 12px; border-radius: 50%; margin-right: 8px; }
        .status-active { background-color: #28a745; }
        .status-danger { background-color: #dc3545; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(300px, 1fr)); gap: 20px; }
        .card { background: white; border-radius: 10px; padding: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
        .card h3 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        .metric { display: flex; justify-content: space-between; align-items: center; padding: 8px 0; border-bottom: 1px solid #eee; }
        .metric:last-child { border-bottom: none; }
        .metric-label { font-weight: 500; color: #666; }
        .metric-value { font-weight: bold; color: #333; }
        .metric-positive { color: #28a745; }
        .metric-negative { color: #dc3545; }
        .positions-table { width: 100%; border-collapse: collapse; margin-top: 10px; }
        .positions-table th, .positions-table td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
        .circuit-breaker { display: flex; justify-content: space-between; align-items: center; padding: 5px 0; }
        .circuit-status { padding: 2px 8px; border-radius: 4px; font-size: 0.8em; font-weight: bold; }
        .circuit-active { background-color: #dc3545; color: white; }
        .circuit-inactive { background-color: #28a745; color: white; }
        .large-metric { font-size: 1.5em; text-align: center; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>Live Trading Orchestrator</h1></div>
        <div class="status-bar">
            <div class="status-indicator">
                <div class="status-dot" id="trading-status"></div>
                <span id="trading-status-text">Checking...</span>
            </div>
            <div class="status-indicator"><span id="last-update">Last Updated: --</span></div>
        </div>
        <div class="grid">
            <div class="card">
                <h3>Account</h3>
                <div class="metric"><span class="metric-label">Initial Balance</span><span class="metric-value" id="initial-balance">$0.00</span></div>
                <div class="metric"><span class="metric-label">Current Balance</span><span class="metric-value" id="current-balance">$0.00</span></div>
                <div class="metric"><span class="metric-label">Peak Balance</span><span class="metric-value" id="peak-balance">$0.00</span></div>
                <div class="metric"><span class="metric-label">Daily P&L</span><span class="metric-value" id="daily-pnl">$0.00</span></div>
            </div>
            <div class="card">
                <h3>Drawdown Protection</h3>
                <div class="large-metric"><span id="current-drawdown">0.00%</span></div>
                <div class="metric"><span class="metric-label">Max Allowed</span><span class="metric-value" id="max-drawdown-protection">0.00%</span></div>
            </div>
            <div class="card">
                <h3>Circuit Breakers</h3>
                <div class="circuit-breaker"><span>Volatility</span><span class="circuit-status" id="circuit-volatility">INACTIVE</span></div>
                <div class="circuit-breaker"><span>Imbalance</span><span class="circuit-status" id="circuit-imbalance">INACTIVE</span></div>
                <div class="circuit-breaker"><span>Volume</span><span class="circuit-status" id="circuit-volume">INACTIVE</span></div>
                <div class="circuit-breaker"><span>Error Rate</span><span class="circuit-status" id="circuit-error_rate">INACTIVE</span></div>
            </div>
            <div class="card">
                <h3>Active Positions</h3>
                <div class="metric"><span class="metric-label">Total Exposure</span><span class="metric-value" id="total-exposure">$0.00</span></div>
                <table class="positions-table"><thead><tr><th>Symbol</th><th>Qty</th></tr></thead><tbody id="positions-table-body"></tbody></table>
            </div>
        </div>
    </div>
    <script>
        const ws = new WebSocket('ws://' + location.host + '/ws');
        ws.onmessage = function(event) { updateDashboard(JSON.parse(event.data)); };
        ws.onclose = function() { setTimeout(() => location.reload(), 5000); };
        function updateDashboard(data) {
            document.getElementById('last-update').textContent = 'Last Updated: ' + new Date(data.timestamp).toLocaleTimeString();
            const statusDot = document.getElementById('trading-status');
            const statusText = document.getElementById('trading-status-text');
            if (data.canTrade) {
                statusDot.className = 'status-dot status-active';
                statusText.textContent = 'Trading Active';
            } else {
                statusDot.className = 'status-dot status-danger';
                statusText.textContent = 'Trading Suspended: ' + data.tradingSuspendedBy;
            }
            document.getElementById('initial-balance').textContent = '$' + data.initialBalance.toFixed(2);
            document.getElementById('current-balance').textContent = '$' + data.currentBalance.toFixed(2);
            document.getElementById('peak-balance').textContent = '$' + data.peakBalance.toFixed(2);
            const dailyPnL = document.getElementById('daily-pnl');
            dailyPnL.textContent = '$' + data.dailyPnL.toFixed(2);
            dailyPnL.className = 'metric-value ' + (data.dailyPnL >= 0 ? 'metric-positive' : 'metric-negative');
            document.getElementById('current-drawdown').textContent = (data.currentDrawdown * 100).toFixed(2) + '%';
            document.getElementById('max-drawdown-protection').textContent = (data.maxDrawdownProtection * 100).toFixed(2) + '%';
            for (const key of ['volatility', 'imbalance', 'volume', 'error_rate']) {
                const el = document.getElementById('circuit-' + key);
                const active = (data.circuitBreakerStatus || {})[key];
                el.textContent = active ? 'ACTIVE' : 'INACTIVE';
                el.className = 'circuit-status ' + (active ? 'circuit-active' : 'circuit-inactive');
            }
            const tbody = document.getElementById('positions-table-body');
            tbody.innerHTML = '';
            const entries = Object.entries(data.activePositions || {});
            if (entries.length === 0) {
                tbody.innerHTML = '<tr><td colspan="2" style="text-align:center;color:#666;">No active positions</td></tr>';
            }
            for (const [symbol, qty] of entries) {
                const row = document.createElement('tr');
                row.innerHTML = '<td>' + symbol + '</td><td class="' + (qty >= 0 ? 'metric-positive' : 'metric-negative') + '">' + qty.toFixed(4) + '</td>';
                tbody.appendChild(row);
            }
            document.getElementById('total-exposure').textContent = '$' + data.totalExposure.toFixed(2);
        }
    </script>
</body>
</html>
	`

	t, err := template.New("dashboard").Parse(tmpl)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	t.Execute(w, nil)
}

func (rd *RiskDashboard) handleMetricsAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rd.collectMetrics())
}

func (rd *RiskDashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rd.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	rd.clientsMu.Lock()
	rd.clients[conn] = true
	rd.clientsMu.Unlock()

	if data, err := json.Marshal(rd.collectMetrics()); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	rd.clientsMu.Lock()
	delete(rd.clients, conn)
	rd.clientsMu.Unlock()
}
