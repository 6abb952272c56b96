package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Himikid/andalus-taraweeh/internal/quran"
)

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type PathsConfig struct {
	CorpusPath       string `yaml:"corpus_path"`
	AsadPath         string `yaml:"asad_path"`
	TranscriptDir    string `yaml:"transcript_dir"`
	OutputDir        string `yaml:"output_dir"`
	OverridesPath    string `yaml:"overrides_path"`
	AlignProfilePath string `yaml:"align_profile_path"`
}

type RedisConfig struct {
	URI string `yaml:"uri"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Load loads configuration from a YAML file with environment variable
// overrides. Redis and Telegram are optional; empty values disable the
// corresponding adapters.
func Load(filename string) (*Config, error) {
	var cfg Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	// Override with environment variables if present
	if uri := os.Getenv("REDIS_URI"); uri != "" {
		cfg.Redis.URI = uri
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		parsed, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = parsed
	}
	if corpus := os.Getenv("QURAN_CORPUS_PATH"); corpus != "" {
		cfg.Paths.CorpusPath = corpus
	}

	// Set defaults
	if cfg.Paths.CorpusPath == "" {
		cfg.Paths.CorpusPath = "data/quran/quran_arabic.json"
	}
	if cfg.Paths.AsadPath == "" {
		cfg.Paths.AsadPath = "data/quran/quran_asad_en.json"
	}
	if cfg.Paths.TranscriptDir == "" {
		cfg.Paths.TranscriptDir = "data/ai/cache"
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = "public/data"
	}
	if cfg.Paths.OverridesPath == "" {
		cfg.Paths.OverridesPath = "data/ai/day_overrides.json"
	}

	return &cfg, nil
}

// LoadAlignProfile resolves the engine thresholds: defaults first, then the
// optional profile file overlay. The tuner collaborator rewrites profile
// files between trials, so a missing file or unknown keys are tolerated.
func LoadAlignProfile(path string) (quran.Config, error) {
	v := viper.New()
	defaults := quran.DefaultConfig()

	v.SetDefault("min_score", defaults.MinScore)
	v.SetDefault("min_overlap", defaults.MinOverlap)
	v.SetDefault("min_confidence", defaults.MinConfidence)
	v.SetDefault("min_gap_seconds", defaults.MinGapSeconds)
	v.SetDefault("ambiguous_min_score", defaults.AmbiguousMinScore)
	v.SetDefault("ambiguous_min_confidence", defaults.AmbiguousMinConfidence)
	v.SetDefault("max_forward_jump_ayat", defaults.MaxForwardJumpAyat)
	v.SetDefault("max_recovery_jump_ayat", defaults.MaxRecoveryJumpAyat)
	v.SetDefault("duplicate_ayah_window_seconds", defaults.DuplicateAyahWindowSeconds)
	v.SetDefault("max_infer_gap_ayat", defaults.MaxInferGapAyat)
	v.SetDefault("max_infer_gap_seconds", defaults.MaxInferGapSeconds)
	v.SetDefault("min_infer_step_seconds", defaults.MinInferStepSeconds)
	v.SetDefault("max_infer_step_seconds", defaults.MaxInferStepSeconds)
	v.SetDefault("max_leading_infer_ayat", defaults.MaxLeadingInferAyat)
	v.SetDefault("repeat_lookback_ayat", defaults.RepeatLookbackAyat)
	v.SetDefault("repeat_min_score", defaults.RepeatMinScore)
	v.SetDefault("repeat_min_overlap", defaults.RepeatMinOverlap)
	v.SetDefault("repeat_min_confidence", defaults.RepeatMinConfidence)
	v.SetDefault("repeat_max_gap_seconds", defaults.RepeatMaxGapSeconds)
	v.SetDefault("non_recitation_hold_seconds", defaults.NonRecitationHoldSeconds)
	v.SetDefault("long_break_reacquire_seconds", defaults.LongBreakReacquireSeconds)
	v.SetDefault("require_weak_support_for_inferred", defaults.RequireWeakSupportForInferred)
	v.SetDefault("strict_normalization", defaults.StrictNormalization)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return quran.Config{}, fmt.Errorf("read align profile: %w", err)
			}
		}
	}

	var cfg quran.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return quran.Config{}, fmt.Errorf("unmarshal align profile: %w", err)
	}
	return cfg, nil
}
