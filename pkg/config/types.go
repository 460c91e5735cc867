package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent cloudchat configuration stored as
// config.toml in the .cloudchat/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Chat        ChatConfig        `toml:"chat"`
	Log         LogConfig         `toml:"log"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// ClientConfig holds settings for talking to the chat backend.
// APITarget is a full URL (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`

	// Timeout bounds non-streaming requests, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout, returning 0 when it is unset or invalid.
func (c ClientConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ChatConfig holds settings for the interactive chat command.
type ChatConfig struct {
	// RecordDir is where raw stream transcripts are written when recording
	// is enabled without an explicit file.
	RecordDir string `toml:"record_dir,omitempty"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`
}

// EventStreamConfig selects where settled exchanges are published.
// Provider is "none" or "kafka".
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func parseBoolKey(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b, nil
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for client.timeout: %w", err)
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"chat.record_dir": {
		get: func(c *Config) string { return c.Chat.RecordDir },
		set: func(c *Config, v string) error { c.Chat.RecordDir = v; return nil },
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := parseBoolKey("log.json", v)
			if err != nil {
				return err
			}
			c.Log.JSON = b
			return nil
		},
	},
	"log.pretty": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Pretty) },
		set: func(c *Config, v string) error {
			b, err := parseBoolKey("log.pretty", v)
			if err != nil {
				return err
			}
			c.Log.Pretty = b
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case ProviderNone, ProviderKafka:
				c.EventStream.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s, %s)", v, ProviderNone, ProviderKafka)
			}
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error { c.EventStream.Brokers = SplitList(v); return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
