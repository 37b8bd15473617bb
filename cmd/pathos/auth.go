package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathos-os/pathos/pkg/pathos"
)

var (
	authName     string
	authEmail    string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the Pathos backend",
	Long:  "Sign in and store the session token locally. Prompts for missing values when run in a terminal.",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a Pathos account",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session and cached roadmap",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and whether a roadmap exists",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend reachability and pending progress sync",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password")
	}
	registerCmd.Flags().StringVar(&authName, "name", "", "Display name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if err := collectCredentials(cmd, nil); err != nil {
		return err
	}

	return withClient(func(c *pathos.Client) error {
		err := c.Login(cmd.Context(), pathos.Credentials{Email: authEmail, Password: authPassword})
		if errors.Is(err, pathos.ErrInvalidCredentials) {
			return errors.New("incorrect email or password")
		}
		if err != nil {
			return err
		}
		return reportSignedIn(cmd, c)
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	if err := collectCredentials(cmd, &authName); err != nil {
		return err
	}

	return withClient(func(c *pathos.Client) error {
		reg := pathos.Registration{Name: authName, Email: authEmail, Password: authPassword}
		if err := c.Register(cmd.Context(), reg); err != nil {
			return err
		}
		return reportSignedIn(cmd, c)
	})
}

// collectCredentials prompts for missing values in a terminal and
// otherwise requires them as flags. name is nil for login.
func collectCredentials(cmd *cobra.Command, name *string) error {
	missing := authEmail == "" || authPassword == "" || (name != nil && *name == "")
	if !missing {
		return nil
	}
	if shouldPrompt(cmd) {
		return promptCredentials(name, &authEmail, &authPassword)
	}
	if name != nil {
		return errors.New("--name, --email and --password are required when not running interactively")
	}
	return errors.New("--email and --password are required when not running interactively")
}

// reportSignedIn prints the dashboard state right after authentication so
// a new user is pointed at onboarding.
func reportSignedIn(cmd *cobra.Command, c *pathos.Client) error {
	d, redirect, err := c.Dashboard(cmd.Context())
	if err != nil {
		return err
	}
	if redirect == pathos.RedirectLogin {
		return errSessionExpired
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), dashboardJSON(d, redirect))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", d.User.Name, d.User.Email)
	if redirect == pathos.RedirectOnboarding {
		hint(cmd.OutOrStdout(), "No roadmap yet. Run `pathos onboard` to generate one.")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		if err := c.Logout(cmd.Context()); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]bool{"signed_out": true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		d, redirect, err := c.Dashboard(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), dashboardJSON(d, redirect))
		}

		out := cmd.OutOrStdout()
		switch redirect {
		case pathos.RedirectLogin:
			fmt.Fprintln(out, "Not signed in")
			hint(out, "Run `pathos login` or `pathos register`.")
		case pathos.RedirectOnboarding:
			fmt.Fprintf(out, "%s <%s>\n", d.User.Name, d.User.Email)
			fmt.Fprintf(out, "ID: %s\n", d.User.ID)
			hint(out, "No roadmap yet. Run `pathos onboard` to generate one.")
		default:
			fmt.Fprintf(out, "%s <%s>\n", d.User.Name, d.User.Email)
			fmt.Fprintf(out, "ID: %s\n", d.User.ID)
			fmt.Fprintln(out, "Roadmap: yes")
		}
		return nil
	})
}

func dashboardJSON(d *pathos.Dashboard, redirect pathos.Redirect) map[string]any {
	out := map[string]any{
		"signed_in": d != nil,
		"next":      redirect.String(),
	}
	if d != nil {
		out["user"] = d.User
		out["has_roadmap"] = d.HasRoadmap
	}
	return out
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		ctx := cmd.Context()
		health := c.Health(ctx)
		stats, err := c.Stats(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			out := map[string]any{
				"api_url":      cfg.Client.APIURL,
				"backend":      health.Backend,
				"local_store":  health.LocalStore,
				"pending_sync": stats.PendingSync,
			}
			if stats.OldestPending != nil {
				out["oldest_pending"] = stats.OldestPending
			}
			if health.LastError != "" {
				out["last_error"] = health.LastError
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend:      %s (%s)\n", upDown(health.Backend), cfg.Client.APIURL)
		fmt.Fprintf(out, "Local store:  %s\n", upDown(health.LocalStore))
		fmt.Fprintf(out, "Pending sync: %d\n", stats.PendingSync)
		if stats.OldestPending != nil {
			fmt.Fprintf(out, "Oldest:       %s\n", stats.OldestPending.Local().Format("2006-01-02 15:04:05"))
		}
		if health.LastError != "" {
			fmt.Fprintf(out, "Last error:   %s\n", health.LastError)
		}
		return nil
	})
}

func upDown(ok bool) string {
	if ok {
		return doneStyle.Render("reachable")
	}
	return "unreachable"
}
