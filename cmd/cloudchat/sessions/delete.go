package sessionscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/cmd/cloudchat/cmdenv"
	"github.com/papercomputeco/cloudchat/pkg/cliui"
)

const deleteShortDesc string = "Delete a conversation"

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: deleteShortDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd, cmdenv.Options{})
			if err != nil {
				return err
			}
			token, err := env.RequireToken(cmd)
			if err != nil {
				return err
			}

			id := args[0]
			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			err = cliui.Step(out, "Deleting "+id, func() error {
				return env.Client.DeleteSession(cmd.Context(), token, id)
			})
			fmt.Fprintln(out)
			return err
		},
	}

	cmdenv.AddClientFlags(cmd)

	return cmd
}
