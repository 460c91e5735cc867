package sessionscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/cmd/cloudchat/cmdenv"
	"github.com/papercomputeco/cloudchat/pkg/cliui"
)

const showShortDesc string = "Print a conversation"

func newShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
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

			detail, err := env.Client.GetSession(cmd.Context(), token, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title := detail.Title
			if title == "" {
				title = detail.SessionID
			}
			fmt.Fprintf(out, "\n  %s %s\n\n",
				cliui.HeaderStyle.Render(title),
				cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(detail.Messages))),
			)
			cliui.PrintMessages(out, detail.Messages, !raw)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print replies without markdown rendering")

	return cmd
}
