// Command ghost is the daemon entrypoint: it loads configuration, wires
// every owning component (event bus, emotion, scheduler, beliefs, memory,
// BDI, LLM providers, cognition, validator, orchestrator, speech,
// cryostasis, sensors, transport) and runs until an interrupt or
// terminate signal. Grounded on cmd/tarsy/main.go's flag-driven config
// path and signal-based shutdown, adapted from that HTTP/Postgres service
// shape to this module's event-bus-driven components.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/bdi"
	"github.com/Saguny/projectghost/internal/beliefs"
	"github.com/Saguny/projectghost/internal/cognition"
	"github.com/Saguny/projectghost/internal/config"
	"github.com/Saguny/projectghost/internal/cryostasis"
	"github.com/Saguny/projectghost/internal/cryostasis/probe"
	"github.com/Saguny/projectghost/internal/emotion"
	"github.com/Saguny/projectghost/internal/eventbus"
	"github.com/Saguny/projectghost/internal/ghostlog"
	"github.com/Saguny/projectghost/internal/llm"
	"github.com/Saguny/projectghost/internal/llm/anthropicprovider"
	"github.com/Saguny/projectghost/internal/llm/openaiprovider"
	"github.com/Saguny/projectghost/internal/memory"
	"github.com/Saguny/projectghost/internal/memory/vectorstore"
	"github.com/Saguny/projectghost/internal/memory/vectorstore/embedding"
	"github.com/Saguny/projectghost/internal/orchestrator"
	"github.com/Saguny/projectghost/internal/scheduler"
	"github.com/Saguny/projectghost/internal/sensors"
	"github.com/Saguny/projectghost/internal/sensors/activity"
	"github.com/Saguny/projectghost/internal/speech"
	"github.com/Saguny/projectghost/internal/transport/wsadapter"
	"github.com/Saguny/projectghost/internal/validator"
)

func main() {
	configPath := flag.String("config", "ghost.yaml", "path to the daemon's YAML configuration file")
	listenAddr := flag.String("listen", ":8765", "address the WebSocket transport listens on")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger := ghostlog.New(ghostlog.Config{
		Level:       cfg.Logging.Level,
		Console:     cfg.Logging.Console,
		MetricsPath: cfg.Logging.MetricsPath,
	})
	logger.Info().Str("config", *configPath).Msg("starting ghost")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New(logger)
	bus.Start()
	defer bus.Stop()

	sched := scheduler.New(logger)
	sched.Start()
	defer sched.Stop()

	var embedder vectorstore.EmbeddingProvider
	semanticStore := vectorstore.Store(vectorstore.NewFallbackStore())
	if cfg.LLM.APIKey != "" {
		if openaiEmbedder, err := embedding.New(cfg.LLM.APIKey, "", ""); err != nil {
			logger.Warn().Err(err).Msg("embedding provider unavailable, falling back to substring search")
		} else {
			embedder = openaiEmbedder
			if sqliteStore, err := vectorstore.NewSQLiteStore(logger, filepath.Join(cfg.DataDir, "semantic.db"), embedder); err != nil {
				logger.Warn().Err(err).Msg("semantic store unavailable, falling back to substring search")
			} else {
				semanticStore = sqliteStore
			}
		}
	}
	mem := memory.New(logger, memory.NewEpisodicBuffer(cfg.Memory.BufferSize), semanticStore,
		memory.WithConsolidationThreshold(cfg.Memory.ConsolidationThreshold),
		memory.WithImportanceGate(cfg.Memory.ImportanceThreshold),
	)

	emo := emotion.New(logger, bus, filepath.Join(cfg.DataDir, "emotional_state.json"), emotion.State{
		Pleasure:  cfg.Persona.DefaultPAD.Pleasure,
		Arousal:   cfg.Persona.DefaultPAD.Arousal,
		Dominance: cfg.Persona.DefaultPAD.Dominance,
	}, emotion.WithDecayRate(cfg.Emotion.PADDecayRate))

	belStore, err := beliefs.New(logger, filepath.Join(cfg.DataDir, "beliefs.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("opening belief store")
	}
	defer belStore.Close()
	if err := belStore.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("initializing belief store")
	}

	bdiEngine := bdi.New(logger, bus, filepath.Join(cfg.DataDir, "bdi_state.json"),
		bdi.WithMinInterval(time.Duration(cfg.Autonomy.MinIntervalMinutes*float64(time.Minute))),
	)
	if _, err := sched.Every("bdi-tick", time.Duration(cfg.Autonomy.CheckIntervalSeconds*float64(time.Second)), func() {
		bdiEngine.Tick(ctx)
	}); err != nil {
		logger.Fatal().Err(err).Msg("scheduling BDI tick")
	}
	if cfg.Emotion.EnableCircadian {
		if _, err := sched.Every("emotion-circadian", time.Duration(cfg.Emotion.DecayIntervalS*float64(time.Second)), func() {
			emo.ApplyCircadianTick(ctx)
		}); err != nil {
			logger.Fatal().Err(err).Msg("scheduling circadian tick")
		}
	}

	think, speak := buildProviders(cfg, logger)
	core := cognition.New(logger, think, speak, cfg.LLM.Model, cognition.PersonaConfig{
		Name:            cfg.Persona.Name,
		SystemPrompt:    cfg.Persona.SystemPrompt,
		Temperature:     cfg.Persona.Temperature,
		StopTokens:      cfg.Persona.StopTokens,
		MaxOutputTokens: cfg.Persona.MaxOutputTokens,
		Examples:        cfg.Persona.Examples,
	})

	val := validator.New(logger, belStore)

	resourceProbe := probe.New(cfg.Cryostasis.Blacklist)
	gater := cryostasis.New(logger, bus, sched, resourceProbe, cryostasis.NoopUnloader{}, cryostasis.Policy{
		GPUPct:       cfg.Cryostasis.GPUPct,
		CPUPct:       cfg.Cryostasis.CPUPct,
		VRAMMb:       cfg.Cryostasis.VRAMMb,
		Blacklist:    cfg.Cryostasis.Blacklist,
		WakeCooldown: time.Duration(cfg.Cryostasis.WakeCooldownS * float64(time.Second)),
	})
	if cfg.Cryostasis.Enabled {
		if err := gater.Start(time.Duration(cfg.Cryostasis.PollS * float64(time.Second))); err != nil {
			logger.Fatal().Err(err).Msg("starting cryostasis gater")
		}
	}

	sensorList := []sensors.Sensor{activity.New(bus, activity.DefaultCategories())}

	const primaryChannelID = "primary"
	orchestrator.New(logger, bus, mem, emo, belStore, bdiEngine, core, val, gater, sensorList, primaryChannelID)

	governor := speech.New(speech.DefaultConfig())
	transportServer := wsadapter.New(logger, bus, governor)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", transportServer.HandleWS)
	httpServer := &http.Server{Addr: *listenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *listenAddr).Msg("websocket transport listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("websocket transport failed")
	}
	logger.Info().Msg("ghost shut down")
}

// buildProviders constructs the Think/Speak llm.Provider pair per
// cfg.LLM.Provider, each wrapped in llm.WithRetries per cfg.LLM.Retries.
// Both stages share one provider instance, matching cognition.New's doc
// comment that think/speak may be the same Provider.
func buildProviders(cfg config.Config, logger zerolog.Logger) (think, speak llm.Provider) {
	var base llm.Provider
	switch cfg.LLM.Provider {
	case "openai":
		base = openaiprovider.New(cfg.LLM.APIKey, cfg.LLM.URL, logger)
	default:
		base = anthropicprovider.New(cfg.LLM.APIKey, cfg.LLM.URL, logger)
	}
	wrapped := llm.WithRetries(base, cfg.LLM.Retries, logger)
	return wrapped, wrapped
}
