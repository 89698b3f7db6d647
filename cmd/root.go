package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

const version = "1.0"

type rootOptions struct {
	configPath string
}

func NewRootCommand(ctx context.Context) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "bookshelf",
		Short:         "track the books you own, want and have read",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", ".env", "env file to load before reading the environment")

	cmd.AddCommand(HTTPCommand(ctx, opts))
	cmd.AddCommand(BooksCommand(ctx, opts))

	return cmd
}

func Run() error {
	ctx := context.Background()

	if err := NewRootCommand(ctx).Execute(); err != nil {
		return err
	}

	return nil
}
