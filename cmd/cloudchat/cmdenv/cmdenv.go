// Package cmdenv wires configuration, logging, credentials and the backend
// client for cloudchat commands.
package cmdenv

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/config"
	"github.com/papercomputeco/cloudchat/pkg/credentials"
	"github.com/papercomputeco/cloudchat/pkg/eventstream"
	"github.com/papercomputeco/cloudchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/cloudchat/pkg/eventstream/nop"
	"github.com/papercomputeco/cloudchat/pkg/logger"
)

// AddClientFlags registers the flags shared by every command that talks to
// the backend.
func AddClientFlags(cmd *cobra.Command) {
	var (
		target, timeout string
		logJSON, pretty bool
	)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &target)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTimeout, &timeout)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagLogJSON, &logJSON)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagLogPretty, &pretty)
}

// LoadConfig resolves config with flags > env > file > defaults precedence.
// The client flags are always bound; extra sets are bound in full.
func LoadConfig(cmd *cobra.Command, extra ...config.FlagSet) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	for _, fs := range append([]config.FlagSet{config.ClientFlags}, extra...) {
		keys := make([]string, 0, len(fs))
		for k := range fs {
			keys = append(keys, k)
		}
		config.BindRegisteredFlags(v, cmd, fs, keys)
	}

	return config.FromViper(v), nil
}

// Env is everything a backend-facing command needs.
type Env struct {
	ConfigDir   string
	Config      *config.Config
	Logger      *slog.Logger
	Credentials *credentials.Manager
	Tokens      *credentials.TokenSource
	Client      *chatapi.Client
}

// Options tune New.
type Options struct {
	// LogWriters receive JSON log records in addition to the terminal.
	LogWriters []io.Writer

	// Recorder receives the raw lines of every chat stream.
	Recorder io.Writer
}

// Load is LoadConfig followed by New.
func Load(cmd *cobra.Command, opts Options) (*Env, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return New(cmd, cfg, opts)
}

// New builds the logger, credentials and client for cmd from cfg.
func New(cmd *cobra.Command, cfg *config.Config, opts Options) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	log := NewLogger(cfg, debug, cmd.ErrOrStderr(), opts.LogWriters...)

	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	clientOpts := []chatapi.ClientOption{
		chatapi.WithLogger(log),
	}
	if d := cfg.Client.TimeoutDuration(); d > 0 {
		clientOpts = append(clientOpts, chatapi.WithTimeout(d))
	}
	if opts.Recorder != nil {
		clientOpts = append(clientOpts, chatapi.WithRecorder(opts.Recorder))
	}

	return &Env{
		ConfigDir:   configDir,
		Config:      cfg,
		Logger:      log,
		Credentials: creds,
		Tokens:      creds.ForTarget(cfg.Client.APITarget),
		Client:      chatapi.NewClient(cfg.Client.APITarget, clientOpts...),
	}, nil
}

// RequireToken returns the current token or an error telling the user how
// to sign in.
func (e *Env) RequireToken(cmd *cobra.Command) (string, error) {
	token, err := e.Tokens.IDToken(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("reading credentials: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("not signed in to %s: run 'cloudchat auth' or set %s",
			e.Config.Client.APITarget, credentials.TokenEnvVar)
	}
	return token, nil
}

// NewLogger builds the command logger: the configured handler on the
// terminal plus debug-level JSON records on every extra writer.
func NewLogger(cfg *config.Config, debug bool, term io.Writer, extra ...io.Writer) *slog.Logger {
	if term == nil {
		term = os.Stderr
	}
	base := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(cfg.Log.Pretty),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithWriter(term),
	)
	if len(extra) == 0 {
		return base
	}

	loggers := []*slog.Logger{base}
	for _, w := range extra {
		loggers = append(loggers, logger.New(
			logger.WithLevel(slog.LevelDebug),
			logger.WithJSON(true),
			logger.WithWriter(w),
		))
	}
	return logger.Multi(loggers...)
}

// NewPublisher builds the exchange publisher selected by config.
func NewPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case "", config.ProviderNone:
		return nop.NewPublisher(), nil
	case config.ProviderKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.EventStream.Brokers,
			Topic:   cfg.EventStream.Topic,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", cfg.EventStream.Provider)
	}
}
