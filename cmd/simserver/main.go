package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/server/internal/config"
	"github.com/l1jgo/server/internal/data"
	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/events"
	"github.com/l1jgo/server/internal/lod"
	"github.com/l1jgo/server/internal/save"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printSection(title string) {
	fmt.Printf("\n-- %s --\n", title)
}

func printStat(label string, count int) {
	fmt.Printf("  %-28s %d\n", label, count)
}

func printOK(msg string) {
	fmt.Printf("  ✓ %s\n", msg)
}

func run() error {
	cfgPath := "config/sim.toml"
	if p := os.Getenv("SIMSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting simulation server", zap.Int64("rng_seed", cfg.World.RNGSeed))

	printSection("world")
	graphData, err := os.ReadFile(cfg.World.SubzoneGraphPath)
	if err != nil {
		return fmt.Errorf("read subzone graph: %w", err)
	}
	graph, err := subzone.LoadGraph(graphData)
	if err != nil {
		return fmt.Errorf("load subzone graph: %w", err)
	}
	printStat("subzone nodes", len(graph.Nodes))

	w := simworld.NewWorld(graph, cfg.World.RNGSeed)

	printSection("content")
	items, err := data.LoadItemRegistry(cfg.Content.ItemPaths...)
	if err != nil {
		return fmt.Errorf("load item registry: %w", err)
	}
	printStat("item definitions", items.Count())
	w.Items = items

	lootTables, err := data.LoadLootTableManager(cfg.Content.LootTablePath)
	if err != nil {
		return fmt.Errorf("load loot tables: %w", err)
	}
	printStat("loot tables", lootTables.Count())
	w.LootTables = lootTables

	events.Register(w.Scheduler, log)

	if loaded, err := loadOrBootstrap(w, cfg); err != nil {
		return fmt.Errorf("load save: %w", err)
	} else if !loaded {
		lod.DemoteAllNonPlayer(w, w.Clock.Now, log)
		events.ScheduleMealEvents(w, w.Clock.Now)
		printOK("bootstrapped fresh world")
	} else {
		printOK(fmt.Sprintf("loaded save slot %d", cfg.Save.Slot))
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.World.TickInterval)
	defer ticker.Stop()
	autosave := time.NewTicker(cfg.Save.AutosaveInterval)
	defer autosave.Stop()

	printSection("ready")
	printOK(fmt.Sprintf("tick interval %s (%.2f game-minutes/tick)", cfg.World.TickInterval, cfg.World.TickMinutes))

	for {
		select {
		case <-ticker.C:
			dispatched := w.Tick(cfg.World.TickMinutes)
			w.Purge()
			if dispatched > 0 {
				log.Debug("tick", zap.Int("dispatched", dispatched), zap.Float64("game_time", w.Clock.Now))
			}
		case <-autosave.C:
			if err := save.Save(w, cfg.Save.Slot); err != nil {
				log.Error("autosave failed", zap.Error(err))
			} else {
				log.Info("autosaved", zap.Int("slot", cfg.Save.Slot))
			}
		case sig := <-shutdownCh:
			log.Info("received shutdown signal", zap.String("signal", sig.String()))
			if err := save.Save(w, cfg.Save.Slot); err != nil {
				log.Error("final save failed", zap.Error(err))
			}
			log.Info("simulation server stopped")
			return nil
		}
	}
}

// loadOrBootstrap loads an existing save into a freshly constructed
// world, restoring the player and every saved entity's LOD-appropriate
// components and the scheduler's pending events. Returns false (with
// no error) when no save file exists yet, so the caller can run its
// own fresh-world bootstrap instead.
func loadOrBootstrap(w *simworld.World, cfg *config.Config) (bool, error) {
	data, err := save.Load(w, cfg.Save.Slot)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	if data.Player != nil {
		player := w.Spawn()
		w.Player.Set(player, &ecs.Player{})
		save.ApplyPlayer(w, player, data.Player)
	}

	// Saved ids are not reused by the re-spawn, so pending events are
	// moved from each saved id to the actor spawned in its place.
	respawned := make(map[ecs.EntityID]ecs.EntityID, len(data.Entities))
	for idStr, ent := range data.Entities {
		id := w.Spawn()
		save.ApplyEntity(w, id, ent)
		if old, err := strconv.ParseUint(idStr, 10, 64); err == nil {
			respawned[ecs.EntityID(old)] = id
		}
	}
	for i := range data.SchedulerQueue {
		if id, ok := respawned[data.SchedulerQueue[i].Actor]; ok {
			data.SchedulerQueue[i].Actor = id
		}
	}

	save.ApplyScheduler(w.Scheduler, data.SchedulerQueue)
	return true, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
