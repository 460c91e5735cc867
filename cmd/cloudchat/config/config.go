// Package configcmder provides the config command for managing persistent
// cloudchat configuration stored in the .cloudchat/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/pkg/cliui"
	"github.com/papercomputeco/cloudchat/pkg/config"
)

const configLongDesc string = `Manage persistent cloudchat configuration.

Configuration is stored as config.toml in the .cloudchat/ directory and
provides default values for command flags. CLI flags and CLOUDCHAT_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.timeout,
  chat.record_dir,
  log.json, log.pretty,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  cloudchat config set <key> <value>    Set a configuration value
  cloudchat config get <key>            Get a configuration value
  cloudchat config list                 List all configuration values

Examples:
  cloudchat config set client.api_target https://chat.example.com
  cloudchat config set eventstream.provider kafka
  cloudchat config get client.timeout
  cloudchat config list`

const configShortDesc string = "Manage persistent cloudchat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
