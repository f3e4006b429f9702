package monitor

import (
	"fmt"
	"sync"
	"time"
)

type AlertType string

const (
	AlertProfitTarget AlertType = "profit_target"
	AlertLossLimit    AlertType = "loss_limit"
	AlertMigrated     AlertType = "migrated"
)

// Alert is a threshold crossing on a watched position.
type Alert struct {
	Type       AlertType
	Mint       string
	Message    string
	PnLPercent float64
	Threshold  float64
	At         time.Time
}

// AlertConfig holds the thresholds in percent; zero disables a check.
type AlertConfig struct {
	ProfitTargetPercent float64
	LossLimitPercent    float64
	Cooldown            time.Duration
}

// AlertManager raises alerts with a per-type cooldown.
type AlertManager struct {
	mu     sync.Mutex
	config AlertConfig
	last   map[AlertType]time.Time
}

func NewAlertManager(config AlertConfig) *AlertManager {
	return &AlertManager{config: config, last: make(map[AlertType]time.Time)}
}

// Check returns the alerts update triggers.
func (am *AlertManager) Check(u PriceUpdate) []Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	var out []Alert
	label := u.Symbol
	if label == "" {
		label = u.Mint.String()
	}
	if am.config.ProfitTargetPercent > 0 && u.PnLPercent >= am.config.ProfitTargetPercent {
		out = am.raise(out, Alert{
			Type:      AlertProfitTarget,
			Message:   fmt.Sprintf("Profit target reached: +%.1f%% on %s", u.PnLPercent, label),
			Threshold: am.config.ProfitTargetPercent,
		}, u)
	}
	if am.config.LossLimitPercent > 0 && u.PnLPercent <= -am.config.LossLimitPercent {
		out = am.raise(out, Alert{
			Type:      AlertLossLimit,
			Message:   fmt.Sprintf("Loss limit hit: %.1f%% on %s", u.PnLPercent, label),
			Threshold: -am.config.LossLimitPercent,
		}, u)
	}
	return out
}

func (am *AlertManager) raise(out []Alert, a Alert, u PriceUpdate) []Alert {
	if last, ok := am.last[a.Type]; ok && u.At.Sub(last) < am.config.Cooldown {
		return out
	}
	am.last[a.Type] = u.At
	a.Mint = u.Mint.String()
	a.PnLPercent = u.PnLPercent
	a.At = u.At
	return append(out, a)
}
