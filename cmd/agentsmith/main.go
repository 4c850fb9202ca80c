package main

import (
	"flag"
	"os"

	"github.com/walter298/agentsmith/internal/config"
	"github.com/walter298/agentsmith/internal/logx"
	"github.com/walter298/agentsmith/internal/search"
	"github.com/walter298/agentsmith/internal/uci"
)

var (
	depthFlag   = flag.Uint("depth", 0, "default search depth (overrides config)")
	threadsFlag = flag.Int("threads", 0, "worker count, 0 = one per core (overrides config)")
	hashFlag    = flag.Int("hash", 0, "transposition table size in MB, 0 = size from memory (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logx.New("info")
		bootLogger.Fatal().Err(err).Msg("loading configuration")
	}
	if *depthFlag > 0 && *depthFlag <= 255 {
		cfg.Depth = uint8(*depthFlag)
	}
	if *threadsFlag > 0 {
		cfg.Threads = *threadsFlag
	}
	if *hashFlag > 0 {
		cfg.HashMB = *hashFlag
	}

	logger := logx.New(cfg.LogLevel)

	table := search.NewTable(cfg.HashMB)
	if cfg.TablePath != "" {
		if err := search.LoadTable(table, cfg.TablePath, logger); err != nil {
			logger.Warn().Err(err).Msg("restoring table snapshot")
		}
	}

	searcher := search.NewParallelSearch(table, cfg.Threads, logger)
	protocol := uci.New(searcher, table, os.Stdout, cfg.Depth, logger)

	logger.Info().
		Uint8("depth", cfg.Depth).
		Int("workers", searcher.Workers()).
		Msg("engine-ready")

	protocol.Run(os.Stdin)

	if cfg.TablePath != "" {
		if err := search.SaveTable(table, cfg.TablePath, logger); err != nil {
			logger.Warn().Err(err).Msg("saving table snapshot")
		}
	}
}
