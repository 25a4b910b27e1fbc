package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"sonicfeed/models"

	"github.com/BurntSushi/toml"
)

const DefaultSyncChannel = "sonicfeed.posts.sync.v1"

// TomlSeedBlock is one block of a seed post. Type is text, image or embed;
// text blocks use Content, the others Url.
type TomlSeedBlock struct {
	Type    string `toml:"type"`
	Content string `toml:"content,omitempty"`
	Url     string `toml:"url,omitempty"`
}

// TomlSeed is a post shown while the feed has nothing else to show
type TomlSeed struct {
	Blocks []TomlSeedBlock `toml:"blocks"`
}

// TomlFeed holds the feed loading settings
type TomlFeed struct {
	// Where the external payload is read from: an http(s) URL, a file path or
	// empty for none.
	Source               string   `toml:"source"`
	DefaultRetentionDays int      `toml:"default_retention_days"`
	EmptyText            string   `toml:"empty_text"`
	Languages            []string `toml:"languages,omitempty"`
}

type TomlSync struct {
	Channel   string `toml:"channel"`
	RedisAddr string `toml:"redis_addr,omitempty"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Feed  TomlFeed   `toml:"feed"`
	Seeds []TomlSeed `toml:"seed"`
	Sync  TomlSync   `toml:"sync"`
}

// Default returns the configuration used when no file is given.
func Default() *TomlConfig {
	return &TomlConfig{
		Feed: TomlFeed{
			DefaultRetentionDays: models.DefaultRetentionDays,
			EmptyText:            "No posts yet.",
		},
		Sync: TomlSync{
			Channel: DefaultSyncChannel,
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.Feed.DefaultRetentionDays = models.ClampRetentionDays(config.Feed.DefaultRetentionDays)
	if config.Sync.Channel == "" {
		config.Sync.Channel = DefaultSyncChannel
	}
	return config, nil
}
