package cmd

import (
	"errors"
	"fmt"

	"github.com/RamanArcStudios/CulturePassAU-sub003/config"
	"github.com/spf13/cobra"
)

func newExpireCommand(deps *dependencies, cfg *config.Config) *cobra.Command {
	var (
		eventID string
		workers int
	)

	command := &cobra.Command{
		Use:   "expire-tickets",
		Short: "Expire every active ticket of an event",
		RunE: func(command *cobra.Command, args []string) error {
			if deps.ticketService == nil {
				return errors.New("app is not bootstrapped")
			}

			result, err := deps.ticketService.ExpireEvent(command.Context(), eventID, "cli", workers)
			if err != nil {
				return err
			}

			fmt.Fprintf(command.OutOrStdout(), "expired %d tickets, skipped %d\n", result.Expired, result.Skipped)
			return nil
		},
	}

	command.Flags().StringVar(&eventID, "event", "", "event id whose active tickets expire")
	command.Flags().IntVar(&workers, "workers", cfg.ExpireWorkers, "concurrent transitions")
	_ = command.MarkFlagRequired("event")

	return command
}
