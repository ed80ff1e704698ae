package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"service-booking-backend/internal/schedule"
	"service-booking-backend/internal/store"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	var tpl schedule.Template
	var useHorizon bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create time slots for a date range",
		Long: "Create identical time slots on every day from --from to --to. " +
			"With --horizon the configured generator template is used instead. " +
			"Windows that already exist are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			gen := schedule.NewGenerator(store.NewGormStore(rt.db), rt.log)

			if useHorizon {
				h, err := schedule.NewHorizon(rt.cfg.Generator, gen, rt.log)
				if err != nil {
					return err
				}
				n, err := h.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d slots\n", n)
				return nil
			}

			created, err := gen.Generate(cmd.Context(), tpl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d slots\n", len(created))
			return nil
		},
	}

	cmd.Flags().StringVar(&tpl.StartDate, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&tpl.EndDate, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&tpl.StartTime, "start", "09:00", "opening time, HH:MM")
	cmd.Flags().StringVar(&tpl.EndTime, "end", "17:00", "closing time, HH:MM")
	cmd.Flags().IntVar(&tpl.SlotDurationMinutes, "duration", 60, "slot length in minutes")
	cmd.Flags().IntVar(&tpl.MaxCapacity, "capacity", 1, "bookings per slot")
	cmd.Flags().BoolVar(&useHorizon, "horizon", false, "generate the configured rolling horizon")
	cmd.MarkFlagsMutuallyExclusive("horizon", "from")
	cmd.MarkFlagsMutuallyExclusive("horizon", "to")

	return cmd
}
