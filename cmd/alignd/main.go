package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Himikid/andalus-taraweeh/internal/adapter/corpusfile"
	"github.com/Himikid/andalus-taraweeh/internal/adapter/overridesfile"
	"github.com/Himikid/andalus-taraweeh/internal/adapter/quranapi"
	"github.com/Himikid/andalus-taraweeh/internal/adapter/redis"
	"github.com/Himikid/andalus-taraweeh/internal/adapter/telegram"
	"github.com/Himikid/andalus-taraweeh/internal/adapter/transcriptcache"
	"github.com/Himikid/andalus-taraweeh/internal/application"
	"github.com/Himikid/andalus-taraweeh/internal/config"
	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alignd",
		Short:         "Align taraweeh recitation transcripts to the Quran corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newProcessCmd())
	return root
}

type processFlags struct {
	day            int
	part           int
	configPath     string
	output         string
	transcriptPath string
	corpusPath     string
	overridesPath  string
	alignProfile   string
	noTranslation  bool
	noCache        bool
	noNotify       bool
}

func newProcessCmd() *cobra.Command {
	flags := &processFlags{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one day's transcript into ayah markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), flags)
		},
	}

	cmd.Flags().IntVar(&flags.day, "day", 0, "Ramadan day number (1-30)")
	cmd.Flags().IntVar(&flags.part, "part", 0, "Optional part number for split uploads")
	cmd.Flags().StringVar(&flags.configPath, "config", "config.yaml", "App config YAML path")
	cmd.Flags().StringVar(&flags.output, "output", "", "Output JSON path (defaults to <output_dir>/day-{day}.json)")
	cmd.Flags().StringVar(&flags.transcriptPath, "transcript-cache", "", "Transcript cache path override")
	cmd.Flags().StringVar(&flags.corpusPath, "corpus", "", "Quran corpus JSON path override")
	cmd.Flags().StringVar(&flags.overridesPath, "overrides", "", "Day overrides JSON path override")
	cmd.Flags().StringVar(&flags.alignProfile, "align-profile", "", "Align profile path override")
	cmd.Flags().BoolVar(&flags.noTranslation, "no-translation", false, "Skip English translation enrichment")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Skip redis payload caching")
	cmd.Flags().BoolVar(&flags.noNotify, "no-notify", false, "Skip telegram notification")
	_ = cmd.MarkFlagRequired("day")
	return cmd
}

func runProcess(parent context.Context, flags *processFlags) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	log.Info().Msg("configuration loaded")

	if flags.corpusPath != "" {
		cfg.Paths.CorpusPath = flags.corpusPath
	}
	if flags.overridesPath != "" {
		cfg.Paths.OverridesPath = flags.overridesPath
	}
	if flags.alignProfile != "" {
		cfg.Paths.AlignProfilePath = flags.alignProfile
	}

	alignCfg, err := config.LoadAlignProfile(cfg.Paths.AlignProfilePath)
	if err != nil {
		return err
	}

	idx, err := corpusfile.Load(cfg.Paths.CorpusPath, alignCfg.StrictNormalization)
	if err != nil {
		return err
	}
	log.Info().Int("entries", idx.Len()).Msg("corpus loaded")

	transcriptPath := flags.transcriptPath
	if transcriptPath == "" {
		transcriptPath = transcriptcache.PathFor(cfg.Paths.TranscriptDir, flags.day, flags.part, "full")
	}
	segments, err := transcriptcache.Load(transcriptPath)
	if err != nil {
		return err
	}
	log.Info().Int("segments", len(segments)).Str("path", transcriptPath).Msg("transcript loaded")

	overrides, err := overridesfile.Load(cfg.Paths.OverridesPath, flags.day)
	if err != nil {
		return err
	}
	if overrides != nil {
		log.Info().Msg("day overrides loaded")
	}

	var translations domain.TranslationPort
	if !flags.noTranslation {
		translations = quranapi.NewClient("", cfg.Paths.AsadPath)
	}

	var cache domain.CachePort
	if !flags.noCache && cfg.Redis.URI != "" {
		redisCache, err := redis.NewCache(cfg.Redis.URI)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without payload cache")
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	var notifier domain.NotifierPort
	if !flags.noNotify && cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tgNotifier, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Warn().Err(err).Msg("telegram unavailable, continuing without notification")
		} else {
			notifier = tgNotifier
		}
	}

	service := application.NewService(log, translations, cache, notifier)
	payload, err := service.ProcessDay(ctx, application.ProcessDayRequest{
		Day:       flags.day,
		Part:      flags.part,
		Segments:  segments,
		Index:     idx,
		Config:    alignCfg,
		Overrides: overrides,
	})
	if err != nil {
		return err
	}

	outputPath := flags.output
	if outputPath == "" {
		name := fmt.Sprintf("day-%d.json", flags.day)
		if flags.part > 0 {
			name = fmt.Sprintf("day-%d-part-%d.json", flags.day, flags.part)
		}
		outputPath = filepath.Join(cfg.Paths.OutputDir, name)
	}
	if err := writeJSON(outputPath, payload); err != nil {
		return err
	}

	log.Info().Int("markers", len(payload.Markers)).Str("output", outputPath).Msg("day processed")
	if len(payload.Meta.InvariantViolations) > 0 {
		log.Warn().Strs("violations", payload.Meta.InvariantViolations).Msg("output invariants violated")
	}
	return nil
}

func writeJSON(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
