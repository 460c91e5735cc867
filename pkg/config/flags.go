package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --api-target on "cloudchat chat" and "cloudchat sessions") cannot
// drift between commands.
type Flag struct {
	// Name is the long flag name (e.g. "api-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagAPITarget = "api-target"
	FlagTimeout   = "timeout"
	FlagRecordDir = "record-dir"
	FlagLogJSON   = "log-json"
	FlagLogPretty = "log-pretty"
)

// ClientFlags are shared by every command that talks to the backend.
var ClientFlags = FlagSet{
	FlagAPITarget: {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Chat backend URL"},
	FlagTimeout:   {Name: "timeout", ViperKey: "client.timeout", Description: "Timeout for non-streaming requests"},
	FlagLogJSON:   {Name: "log-json", ViperKey: "log.json", Description: "Emit logs as JSON"},
	FlagLogPretty: {Name: "log-pretty", ViperKey: "log.pretty", Description: "Emit colorized logs"},
}

// ChatFlags are specific to the interactive chat command.
var ChatFlags = FlagSet{
	FlagRecordDir: {Name: "record-dir", ViperKey: "chat.record_dir", Description: "Directory for raw stream transcripts"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
