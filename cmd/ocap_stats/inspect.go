package main

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/storage/memory"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		compact    bool
		squadsFile string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the mission record of a replay without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			manager, err := a.newManager(memory.New(config.MemoryConfig{}), nil)
			if err != nil {
				return err
			}
			if squadsFile == "" {
				squadsFile = config.GetEngineConfig().SquadsFile
			}
			if squadsFile != "" {
				if err := manager.LoadRegistry(ctx, squadsFile); err != nil {
					return err
				}
			}

			res, err := manager.ProcessFile(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(res.Record); err != nil {
				return fmt.Errorf("encoding mission record: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print on one line")
	cmd.Flags().StringVar(&squadsFile, "squads", "", "squad registry file (overrides squads.file)")

	return cmd
}
