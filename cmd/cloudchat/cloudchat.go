// Package cloudchatcmder
package cloudchatcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/auth"
	chatcmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/chat"
	configcmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/config"
	sessionscmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/sessions"
	versioncmder "github.com/papercomputeco/cloudchat/cmd/version"
)

const cloudchatLongDesc string = `Cloudchat is a terminal client for a cloud chat backend.

Replies stream in as they are generated, and several conversations can be
in flight at once without their replies crossing.

Get started:
  cloudchat auth           Store your ID token
  cloudchat chat           Start chatting
  cloudchat sessions list  Browse past conversations`

const cloudchatShortDesc string = "Cloudchat - streaming chat client"

func NewCloudchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cloudchat",
		Short:        cloudchatShortDesc,
		Long:         cloudchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .cloudchat/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
