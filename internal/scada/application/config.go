package application

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the ingest tuning knobs that operators adjust per deployment.
type Tuning struct {
	StalenessThresholdMS int `yaml:"staleness_threshold_ms"`
	MaxBatchSize         int `yaml:"max_batch_size"`
	HealthSweepSeconds   int `yaml:"health_sweep_seconds"`

	// Connections overrides staleness per connection id.
	Connections map[string]ConnectionTuning `yaml:"connections"`
}

// ConnectionTuning is a per-connection override.
type ConnectionTuning struct {
	StalenessThresholdMS int `yaml:"staleness_threshold_ms"`
}

// LoadTuning loads tuning from yaml (SCADA_CONFIG) with env fallbacks.
func LoadTuning() (Tuning, error) {
	cfg := Tuning{
		StalenessThresholdMS: getenvIntDefault("SCADA_STALENESS_THRESHOLD_MS", 60000),
		MaxBatchSize:         getenvIntDefault("SCADA_MAX_BATCH_SIZE", 100),
		HealthSweepSeconds:   getenvIntDefault("SCADA_HEALTH_SWEEP_SECONDS", 30),
	}

	if path := os.Getenv("SCADA_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.StalenessThresholdMS <= 0 {
		return cfg, fmt.Errorf("scada tuning: staleness threshold must be positive, got %d", cfg.StalenessThresholdMS)
	}
	if cfg.MaxBatchSize <= 0 {
		return cfg, fmt.Errorf("scada tuning: max batch size must be positive, got %d", cfg.MaxBatchSize)
	}
	if cfg.HealthSweepSeconds <= 0 {
		return cfg, fmt.Errorf("scada tuning: health sweep interval must be positive, got %d", cfg.HealthSweepSeconds)
	}
	return cfg, nil
}

// StalenessThreshold returns the default health window.
func (t Tuning) StalenessThreshold() time.Duration {
	return time.Duration(t.StalenessThresholdMS) * time.Millisecond
}

// StalenessForConnection returns the window for one connection, honoring any
// per-connection override.
func (t Tuning) StalenessForConnection(connectionID string) time.Duration {
	if t.Connections != nil {
		if override, ok := t.Connections[connectionID]; ok && override.StalenessThresholdMS > 0 {
			return time.Duration(override.StalenessThresholdMS) * time.Millisecond
		}
	}
	return t.StalenessThreshold()
}

// StalenessOverrides flattens the per-connection overrides into the form the
// connection service consumes.
func (t Tuning) StalenessOverrides() map[string]time.Duration {
	if len(t.Connections) == 0 {
		return nil
	}
	overrides := make(map[string]time.Duration, len(t.Connections))
	for id, tuning := range t.Connections {
		if tuning.StalenessThresholdMS > 0 {
			overrides[id] = time.Duration(tuning.StalenessThresholdMS) * time.Millisecond
		}
	}
	return overrides
}

// HealthSweepInterval returns how often the health sweep runs.
func (t Tuning) HealthSweepInterval() time.Duration {
	return time.Duration(t.HealthSweepSeconds) * time.Second
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
