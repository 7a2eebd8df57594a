package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"facility/internal/auth"
	"facility/internal/facility"
)

func loginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the bearer token",
		Long:  `Exchange an officer email and password for a bearer token. The password may also be given in FACILITY_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("FACILITY_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			resp, err := a.client.Auth.Login(cmd.Context(), username, password)
			if err != nil {
				return explain(err)
			}
			out := map[string]any{"token_type": resp.TokenType, "user": resp.User}
			if claims, err := auth.Inspect(resp.Token); err == nil && !claims.Expiry().IsZero() {
				out["expires_at"] = claims.Expiry().Format(time.RFC3339)
			}
			return a.print(out)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "officer email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "officer password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return explain(a.client.Auth.Logout(cmd.Context()))
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var req facility.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an officer account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("FACILITY_PASSWORD")
			}
			u, err := a.client.Auth.Register(cmd.Context(), req)
			if err != nil {
				return explain(err)
			}
			return a.print(u)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "officer name")
	cmd.Flags().StringVar(&req.Email, "email", "", "officer email")
	cmd.Flags().StringVar(&req.Password, "password", "", "officer password")
	cmd.Flags().StringVar(&req.PrisonName, "prison", "", "prison name")
	return cmd
}

// whoami shows the locally stored token's claims, then asks the server who
// it belongs to. The claims are decoded without verification.
func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in officer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			token, err := a.client.Session().Token(ctx)
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New("not logged in")
			}
			out := map[string]any{}
			if claims, err := auth.Inspect(token); err == nil {
				out["subject"] = claims.Subject
				if exp := claims.Expiry(); !exp.IsZero() {
					out["expires_at"] = exp.Format(time.RFC3339)
					out["expired"] = time.Now().After(exp)
				}
			}
			me, err := a.client.Auth.Me(ctx)
			if err != nil {
				return explain(err)
			}
			out["officer"] = me
			return a.print(out)
		},
	}
}
