/*
Package commands implements the arbor command line: the root command,
which scans the given paths, and the version subcommand.
*/
package commands

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/sonemaro/arbor/cmd/arbor/app"
	"github.com/sonemaro/arbor/internal/config"
)

// NewRootCommand creates the root command for the application
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arbor [flags] [path...]",
		Short: "Disk usage tree for one or more directories",
		Long: heredoc.Doc(`
			arbor walks each path concurrently and prints its tree annotated with
			sizes. Directory sizes are the sum of everything below them; hard links
			are counted once in on-disk totals.

			Entries named by .gitignore and .ignore files are hidden unless
			--no-ignore is given, as are hidden files unless --hidden is given.
			Sizes and listing order can be tuned with --disk-usage, --sort and
			--dirs-first.

			Every flag can also be set through an ARBOR_ environment variable
			(ARBOR_SORT=size) or a config file ($XDG_CONFIG_HOME/arbor/config.yaml).
			Flags win over the environment, which wins over the file.
		`),
		Example: heredoc.Doc(`
			$ arbor
			$ arbor --sort size --level 2 ~/src
			$ arbor -d apparent --format json -o usage.json /var/log
			$ arbor --iglob -I '*.rs' -n 1 ~/src/project
		`),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}

	config.RegisterFlags(rootCmd.Flags())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// runRoot loads the configuration and runs the application on args.
func runRoot(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString(config.ConfigFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.New(cfg, app.Streams{
		Out: cmd.OutOrStdout(),
		Err: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	ctx, stop := app.NotifyContext(cmd.Context(), application.Logger())
	defer stop()

	return application.Run(ctx, args)
}
