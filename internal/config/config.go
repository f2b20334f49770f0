package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	PGDSN              string
	In                 string
	AuditOut           string
	Checkpoint         string
	CheckpointEnabled  bool
	ClaimCooldown      time.Duration
	RemovalCooldown    time.Duration
	RemovalWindow      time.Duration
	FeeCollector       common.Address
	Admins             []common.Address
	Attributors        []common.Address
	Pausers            []common.Address
	CoordinatorAddress common.Address
	Projects           []common.Address
	MaxRetries         int
	RetryBackoff       time.Duration
	MetricsAddr        string
	LogLevel           string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COORDINATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("in", "./data/operations.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("claim-cooldown", 24*time.Hour)
	v.SetDefault("removal-cooldown", 7*24*time.Hour)
	v.SetDefault("removal-window", 24*time.Hour)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		PGDSN:             v.GetString("pg-dsn"),
		In:                v.GetString("in"),
		AuditOut:          v.GetString("audit-out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		ClaimCooldown:     v.GetDuration("claim-cooldown"),
		RemovalCooldown:   v.GetDuration("removal-cooldown"),
		RemovalWindow:     v.GetDuration("removal-window"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}

	lists := []struct {
		key string
		dst *[]common.Address
	}{
		{"admins", &cfg.Admins},
		{"attributors", &cfg.Attributors},
		{"pausers", &cfg.Pausers},
		{"projects", &cfg.Projects},
	}
	for _, list := range lists {
		addresses, err := ParseAddresses(getStringSlice(v, list.key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", list.key, err)
		}
		*list.dst = addresses
	}

	singles := []struct {
		key string
		dst *common.Address
	}{
		{"coordinator-address", &cfg.CoordinatorAddress},
		{"fee-collector", &cfg.FeeCollector},
	}
	for _, single := range singles {
		raw := strings.TrimSpace(v.GetString(single.key))
		if raw == "" {
			continue
		}
		address, err := ParseAddress(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", single.key, err)
		}
		*single.dst = address
	}

	return cfg, nil
}

// Validate checks the values the coordinator cannot start without.
func (c Config) Validate() error {
	if c.ClaimCooldown <= 0 {
		return fmt.Errorf("claim-cooldown must be positive")
	}
	if c.RemovalCooldown <= 0 || c.RemovalWindow <= 0 {
		return fmt.Errorf("removal-cooldown and removal-window must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
