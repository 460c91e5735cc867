package sessionscmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/cmd/cloudchat/cmdenv"
	"github.com/papercomputeco/cloudchat/pkg/cliui"
)

const listShortDesc string = "List conversations, most recent first"

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, cmdenv.Options{})
			if err != nil {
				return err
			}
			token, err := env.RequireToken(cmd)
			if err != nil {
				return err
			}

			sessions, err := env.Client.ListSessions(cmd.Context(), token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}

			if len(sessions) == 0 {
				fmt.Fprintf(out, "\n  %s No conversations yet.\n\n", cliui.DimStyle.Render("●"))
				return nil
			}

			fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Conversations"))
			for _, s := range sessions {
				fmt.Fprintln(out, cliui.SessionLine(s, false))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")

	return cmd
}
