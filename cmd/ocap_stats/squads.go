package main

import (
	"fmt"

	"github.com/OCAP2/stats/internal/config"
	"github.com/spf13/cobra"
)

func newSquadsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "squads",
		Short: "Manage the squad registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Store every squad of a registry file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			backend, err := a.openBackend(ctx, config.GetStorageConfig())
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					a.Logger.Error("Failed to close storage backend", "error", err)
				}
			}()

			manager, err := a.newManager(backend, nil)
			if err != nil {
				return err
			}
			n, err := manager.ImportSquads(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d squads\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the stored squad registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			backend, err := a.openBackend(ctx, config.GetStorageConfig())
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					a.Logger.Error("Failed to close storage backend", "error", err)
				}
			}()

			reg, err := backend.LoadSquadRegistry(ctx)
			if err != nil {
				return err
			}
			for _, e := range reg {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\t%s\n", e.Name, e.AllTags(), e.MainSide)
			}
			return nil
		},
	})

	return cmd
}
