package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World   WorldConfig   `toml:"world"`
	Content ContentConfig `toml:"content"`
	Save    SaveConfig    `toml:"save"`
	Logging LoggingConfig `toml:"logging"`
}

// WorldConfig governs the simulation clock and the combat RNG stream.
// StartTime is set at boot, not read from the file.
type WorldConfig struct {
	SubzoneGraphPath string        `toml:"subzone_graph_path"`
	TickInterval     time.Duration `toml:"tick_interval"`
	TickMinutes      float64       `toml:"tick_minutes"`
	RNGSeed          int64         `toml:"rng_seed"` // 0 means seed from wall-clock at boot
	StartTime        int64
}

// ContentConfig names the static data files loaded into the item
// registry and loot table manager at startup.
type ContentConfig struct {
	ItemPaths     []string `toml:"item_paths"`
	LootTablePath string   `toml:"loot_table_path"`
}

type SaveConfig struct {
	Slot             int           `toml:"slot"`
	AutosaveInterval time.Duration `toml:"autosave_interval"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.World.StartTime = time.Now().Unix()
	if cfg.World.RNGSeed == 0 {
		cfg.World.RNGSeed = cfg.World.StartTime
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			SubzoneGraphPath: "data/world/subzones.toml",
			TickInterval:     200 * time.Millisecond,
			TickMinutes:      1.0,
		},
		Content: ContentConfig{
			ItemPaths:     []string{"data/items/items.yaml"},
			LootTablePath: "data/items/loot_tables.yaml",
		},
		Save: SaveConfig{
			Slot:             0,
			AutosaveInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
