package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/cloudchat/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CLOUDCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CLOUDCHAT_CLIENT_API_TARGET, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("CLOUDCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper builds a Config from the merged viper view.
func FromViper(v *viper.Viper) *Config {
	brokers := v.GetStringSlice("eventstream.brokers")
	if len(brokers) == 1 {
		// Env values arrive as one comma separated string.
		brokers = SplitList(brokers[0])
	}

	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
			Timeout:   v.GetString("client.timeout"),
		},
		Chat: ChatConfig{
			RecordDir: v.GetString("chat.record_dir"),
		},
		Log: LogConfig{
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  brokers,
			Topic:    v.GetString("eventstream.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("client.api_target", d.Client.APITarget)
	v.SetDefault("client.timeout", d.Client.Timeout)

	v.SetDefault("chat.record_dir", d.Chat.RecordDir)

	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}
