// Package authcmder provides the auth command for storing backend tokens.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/cloudchat/cmd/cloudchat/cmdenv"
	"github.com/papercomputeco/cloudchat/pkg/cliui"
	"github.com/papercomputeco/cloudchat/pkg/credentials"
)

const authLongDesc string = `Store the ID token used to talk to a chat backend.

Tokens are stored per backend URL in credentials.toml in the .cloudchat/
directory. A running "cloudchat chat" notices the change and signs in or
out on its own. CLOUDCHAT_TOKEN, when set, takes precedence over stored
tokens.

Examples:
  cloudchat auth                                  Prompt for a token
  cloudchat auth --api-target https://chat.example.com
  cloudchat auth --list                           List backends with tokens
  cloudchat auth --remove                         Sign out of the backend
  echo $TOKEN | cloudchat auth                    Pipe the token from stdin`

const authShortDesc string = "Store the token for a chat backend"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			if listFlag {
				return runList(cmd.OutOrStdout(), mgr)
			}

			cfg, err := cmdenv.LoadConfig(cmd)
			if err != nil {
				return err
			}
			target := cfg.Client.APITarget

			if removeFlag {
				return runRemove(cmd.OutOrStdout(), mgr, target)
			}
			return runAuth(cmd, mgr, target)
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().BoolVar(&listFlag, "list", false, "List backends with stored tokens")
	cmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the stored token for the backend")

	return cmd
}

func runAuth(cmd *cobra.Command, mgr *credentials.Manager, target string) error {
	token, err := readToken(cmd.InOrStdin(), cmd.OutOrStdout(), target)
	if err != nil {
		return err
	}

	if err := mgr.SetToken(target, token); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Stored token for %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(target),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	return nil
}

func runList(out io.Writer, mgr *credentials.Manager) error {
	targets, err := mgr.ListTargets()
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintf(out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'cloudchat auth' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored tokens"))
	for _, t := range targets {
		fmt.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t))
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, mgr *credentials.Manager, target string) error {
	if err := mgr.RemoveToken(target); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed token for %s.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(target))
	return nil
}

// readToken reads a token from in. On a terminal it prompts with hidden
// input; otherwise it reads the first line.
func readToken(in io.Reader, out io.Writer, target string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter ID token for %s: ", target)
		tokenBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return string(tokenBytes), nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
