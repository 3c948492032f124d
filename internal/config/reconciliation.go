package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReconciliationConfig tunes the payment status engine.
type ReconciliationConfig struct {
	// PaidThreshold is the percentage at or above which an order counts as paid.
	PaidThreshold decimal.Decimal
	// CountedStates are the payment states eligible for the direct-link and
	// reference-match paths.
	CountedStates []string
}

type rawReconciliationConfig struct {
	PaidThreshold string   `mapstructure:"paidThreshold"`
	CountedStates []string `mapstructure:"countedStates"`
}

func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		PaidThreshold: decimal.RequireFromString("99.99"),
		CountedStates: []string{"paid", "in_process"},
	}
}

type ReconciliationConfigHolder struct {
	current atomic.Value // holds ReconciliationConfig
}

// NewStaticReconciliationConfigHolder returns a holder pinned to cfg.
func NewStaticReconciliationConfigHolder(cfg ReconciliationConfig) *ReconciliationConfigHolder {
	holder := &ReconciliationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewReconciliationConfigHolder(log *zap.Logger) (*ReconciliationConfigHolder, error) {
	log = log.Named("reconciliation.config")
	v := viper.New()

	v.SetConfigName("reconciliation")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/purchasing")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PURCHASING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconciliationConfig()
	v.SetDefault("reconciliation.paidThreshold", defaults.PaidThreshold.String())
	v.SetDefault("reconciliation.countedStates", defaults.CountedStates)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeReconciliationConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticReconciliationConfigHolder(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeReconciliationConfig(v)
			if err != nil {
				log.Warn("reconciliation config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reconciliation config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *ReconciliationConfigHolder) Get() ReconciliationConfig {
	if h == nil {
		return DefaultReconciliationConfig()
	}
	cfg, ok := h.current.Load().(ReconciliationConfig)
	if !ok {
		return DefaultReconciliationConfig()
	}
	return cfg
}

func decodeReconciliationConfig(v *viper.Viper) (ReconciliationConfig, error) {
	var raw rawReconciliationConfig
	if err := v.UnmarshalKey("reconciliation", &raw); err != nil {
		return ReconciliationConfig{}, err
	}
	return parseReconciliationConfig(raw)
}

func parseReconciliationConfig(raw rawReconciliationConfig) (ReconciliationConfig, error) {
	threshold, err := decimal.NewFromString(strings.TrimSpace(raw.PaidThreshold))
	if err != nil {
		return ReconciliationConfig{}, errors.New("reconciliation.paidThreshold must be a decimal")
	}
	if threshold.Sign() <= 0 {
		return ReconciliationConfig{}, errors.New("reconciliation.paidThreshold must be positive")
	}

	states := make([]string, 0, len(raw.CountedStates))
	for _, state := range raw.CountedStates {
		state = strings.ToLower(strings.TrimSpace(state))
		if state == "" {
			continue
		}
		states = append(states, state)
	}
	if len(states) == 0 {
		return ReconciliationConfig{}, errors.New("reconciliation.countedStates cannot be empty")
	}

	return ReconciliationConfig{PaidThreshold: threshold, CountedStates: states}, nil
}
