package main

import (
	"github.com/spf13/cobra"

	"facility/internal/facility"
)

func officersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "officers",
		Short: "Manage officer accounts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List officers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				out, err := a.client.Officers.List(cmd.Context())
				if err != nil {
					return explain(err)
				}
				return a.print(out)
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one officer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := a.client.Officers.Get(cmd.Context(), args[0])
				if err != nil {
					return explain(err)
				}
				return a.print(out)
			},
		},
		&cobra.Command{
			Use:   "count",
			Short: "Number of officers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := a.client.Officers.Count(cmd.Context())
				if err != nil {
					return explain(err)
				}
				return a.print(map[string]int{"count": n})
			},
		},
		&cobra.Command{
			Use:   "recognitions-today",
			Short: "Recognitions by all officers today",
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := a.client.Officers.RecognitionsToday(cmd.Context())
				if err != nil {
					return explain(err)
				}
				return a.print(map[string]int{"count": n})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an officer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.client.Officers.Delete(cmd.Context(), args[0]); err != nil {
					return explain(err)
				}
				return a.print(map[string]string{"deleted": args[0]})
			},
		},
	)

	var req facility.RegisterRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an officer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.Officers.Create(cmd.Context(), req)
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "officer name")
	create.Flags().StringVar(&req.Email, "email", "", "officer email")
	create.Flags().StringVar(&req.Password, "password", "", "officer password")
	create.Flags().StringVar(&req.PrisonName, "prison", "", "prison name")

	var name, email, password, prison string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change only the given fields of an officer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			out, err := a.client.Officers.Update(cmd.Context(), args[0], facility.OfficerUpdate{
				Name:       changedString(fs, "name", name),
				Email:      changedString(fs, "email", email),
				Password:   changedString(fs, "password", password),
				PrisonName: changedString(fs, "prison", prison),
			})
			if err != nil {
				return explain(err)
			}
			return a.print(out)
		},
	}
	update.Flags().StringVar(&name, "name", "", "officer name")
	update.Flags().StringVar(&email, "email", "", "officer email")
	update.Flags().StringVar(&password, "password", "", "officer password")
	update.Flags().StringVar(&prison, "prison", "", "prison name")

	cmd.AddCommand(create, update)
	return cmd
}
