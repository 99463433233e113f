package main

import (
	"fmt"

	"github.com/spf13/viper"

	"wattsplit/pkg/wattsplit"
)

// Config is the file/environment configuration for wattsplitctl. Every key
// has a default matching the library's, so an empty config is valid.
type Config struct {
	SequenceLength    int                           `mapstructure:"sequence_length"`
	Epochs            int                           `mapstructure:"n_epochs"`
	BatchSize         int                           `mapstructure:"batch_size"`
	MainsMean         float64                       `mapstructure:"mains_mean"`
	MainsStd          float64                       `mapstructure:"mains_std"`
	LearningRate      float64                       `mapstructure:"learning_rate"`
	SplitSeed         int64                         `mapstructure:"split_seed"`
	InitSeed          int64                         `mapstructure:"init_seed"`
	ChunkWiseTraining bool                          `mapstructure:"chunk_wise_training"`
	Store             string                        `mapstructure:"store"`
	DBPath            string                        `mapstructure:"db_path"`
	ArtifactsDir      string                        `mapstructure:"artifacts_dir"`
	Quiet             bool                          `mapstructure:"quiet"`
	ApplianceParams   map[string]map[string]float64 `mapstructure:"appliance_params"`
}

func loadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("sequence_length", 19)
	v.SetDefault("n_epochs", 10)
	v.SetDefault("batch_size", 512)
	v.SetDefault("mains_mean", 1800)
	v.SetDefault("mains_std", 600)
	v.SetDefault("learning_rate", 0.001)
	v.SetDefault("split_seed", 42)
	v.SetDefault("init_seed", 10)
	v.SetDefault("store", "memory")
	v.SetDefault("db_path", "wattsplit.db")

	v.SetEnvPrefix("WATTSPLIT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) options() wattsplit.Options {
	params := make(map[string]wattsplit.ApplianceStats, len(c.ApplianceParams))
	for name, entry := range c.ApplianceParams {
		params[name] = wattsplit.ApplianceStats{Mean: entry["mean"], Std: entry["std"]}
	}

	opts := wattsplit.Options{
		SequenceLength:    c.SequenceLength,
		Epochs:            c.Epochs,
		BatchSize:         c.BatchSize,
		MainsMean:         &c.MainsMean,
		MainsStd:          &c.MainsStd,
		LearningRate:      c.LearningRate,
		SplitSeed:         c.SplitSeed,
		InitSeed:          c.InitSeed,
		ApplianceParams:   params,
		ChunkWiseTraining: c.ChunkWiseTraining,
		StoreKind:         c.Store,
		DBPath:            c.DBPath,
		ArtifactsDir:      c.ArtifactsDir,
	}
	if !c.Quiet {
		opts.Progress = func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		}
	}
	return opts
}
