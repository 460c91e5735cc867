// Package sessionscmder provides commands for browsing and deleting
// conversations stored on the backend.
package sessionscmder

import (
	"github.com/spf13/cobra"
)

const sessionsLongDesc string = `List, show and delete conversations stored on the backend.

Examples:
  cloudchat sessions list
  cloudchat sessions show 6f1c2d
  cloudchat sessions delete 6f1c2d`

const sessionsShortDesc string = "Manage conversations"

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   sessionsShortDesc,
		Long:    sessionsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}
