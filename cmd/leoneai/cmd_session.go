package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"LeoneAI/internal/di"
	"LeoneAI/internal/domain/models"

	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

// loginCmd authenticates and persists the session
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session locally",
	Long: `Log in with a username and password.

The password may also be supplied through LEONE_PASSWORD.`,
	RunE: runLogin,
}

// logoutCmd clears the stored session
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE:  runLogout,
}

// whoamiCmd shows the stored session
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	_ = loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("LEONE_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required (--password or LEONE_PASSWORD)")
	}
	return withConsole(cmd.Context(), func(ctx context.Context, c *di.Console) error {
		user, err := c.Session.Login(ctx, loginUsername, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", describeUser(user))
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withConsole(cmd.Context(), func(ctx context.Context, c *di.Console) error {
		if err := c.Session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return withConsole(cmd.Context(), func(ctx context.Context, c *di.Console) error {
		if !c.Session.IsAuthenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeUser(c.Session.User()))
		return nil
	})
}

func describeUser(u *models.User) string {
	plan := u.PlanType
	if plan == "" {
		plan = models.PlanFree
	}
	s := fmt.Sprintf("%s <%s> plan=%s", u.Username, u.Email, plan)
	if u.IsSuperuser {
		s += " admin"
	}
	return s
}
