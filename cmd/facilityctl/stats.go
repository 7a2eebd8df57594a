package main

import (
	"context"

	"github.com/spf13/cobra"

	"facility/internal/facility"
)

func statsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Recognition reports",
	}

	var days int
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Recognitions per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.DailyRecognitions(cmd.Context(), days)
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}
	daily.Flags().IntVar(&days, "days", facility.DefaultDailyDays, "window in days")

	var topDays int
	top := &cobra.Command{
		Use:   "top",
		Short: "Most recognized inmates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.TopInmates(cmd.Context(), topDays)
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}
	top.Flags().IntVar(&topDays, "days", facility.DefaultTopInmatesDays, "window in days")

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Latest verifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.RecentVerifications(cmd.Context(), limit)
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}
	recent.Flags().IntVar(&limit, "limit", facility.DefaultRecentVerified, "number of entries")

	cmd.AddCommand(daily, top, recent,
		&cobra.Command{
			Use:   "by-officer",
			Short: "Recognitions per officer",
			RunE: func(cmd *cobra.Command, _ []string) error {
				out, err := a.client.Logs.RecognitionsByOfficer(cmd.Context())
				if err != nil {
					return explain(err)
				}
				return a.print(out)
			},
		},
		&cobra.Command{
			Use:   "today",
			Short: "Your recognitions today",
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := a.client.Logs.RecognitionsToday(cmd.Context())
				if err != nil {
					return explain(err)
				}
				return a.print(map[string]int{"count": n})
			},
		},
		&cobra.Command{
			Use:       "distribution <age|sex|legal-status|facility>",
			Short:     "Inmates grouped by one attribute",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{string(facility.ByAge), string(facility.BySex), string(facility.ByLegalStatus), string(facility.ByFacility)},
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := a.client.Logs.Distribution(cmd.Context(), facility.Dimension(args[0]))
				if err != nil {
					return explain(err)
				}
				return a.print(out)
			},
		},
	)
	return cmd
}

func logsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Raw recognition logs",
	}

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Newest logs first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.Recent(cmd.Context(), limit)
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}
	recent.Flags().IntVar(&limit, "limit", facility.DefaultRecentLogs, "number of entries")

	cmd.AddCommand(recent, &cobra.Command{
		Use:   "all",
		Short: "Every log entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.All(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}, &cobra.Command{
		Use:   "daily",
		Short: "Log count per calendar day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.DailyLogs(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}, &cobra.Command{
		Use:   "by-officer",
		Short: "Log entries grouped by the recognizing officer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Logs.LogsByOfficer(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	})
	return cmd
}

func activityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activity",
		Short: "Stream recognition events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var printErr error
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			err := a.client.Activity.Watch(ctx, func(ev facility.ActivityEvent) {
				if err := a.print(ev); err != nil {
					printErr = err
					cancel()
				}
			})
			if err != nil {
				return explain(err)
			}
			return printErr
		},
	}
}
