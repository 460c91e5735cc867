// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/pkg/utils"
)

type VersionCommander struct {
	short bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.short, "short", false, "Print only the version")

	return cmd
}

func (c *VersionCommander) run(w io.Writer) error {
	if c.short {
		fmt.Fprintln(w, utils.Version)
		return nil
	}
	fmt.Fprint(w, utils.VersionInfo())
	return nil
}
