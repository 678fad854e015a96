package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brattlof/shipboard/internal/app/config"
	"github.com/brattlof/shipboard/internal/app/logging"
	"github.com/brattlof/shipboard/internal/app/page"
	"github.com/brattlof/shipboard/internal/app/server"
	"github.com/brattlof/shipboard/internal/dev"
	"github.com/brattlof/shipboard/internal/users"
)

var rootCmd = &cobra.Command{
	Use:           "sb",
	Short:         "Shipboard CLI - browse the Shipwrecked crew",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Start development server with live reload",
	Long: `Start the Shipboard development server.

Changes to the YAML config file rebuild the app and reload
connected browsers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if !cmd.Flags().Changed("port") {
			port = 0
		}

		return dev.RunDev(dev.Options{
			ConfigPath: configPath,
			Port:       port,
			Version:    version,
			Logger:     logging.New(cfg.Logging, os.Stderr),
		})
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Fetch the user list once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		loader, err := server.NewLoader(cfg, logging.New(cfg.Logging, os.Stderr))
		if err != nil {
			return err
		}

		data, err := loader.Load(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), data)
		}
		printUsers(cmd.OutOrStdout(), data)
		return nil
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the routes the server exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		app, err := server.NewFromConfig(cfg, logging.New(cfg.Logging, os.Stderr), version)
		if err != nil {
			return err
		}

		routes := app.Routes()
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"routes": routeRows(routes)})
		}
		printRoutes(cmd.OutOrStdout(), routes)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Shipboard CLI v%s\n", version)
		fmt.Fprintf(out, "  Commit: %s\n", commit)
		fmt.Fprintf(out, "  Built:  %s\n", date)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsers(w io.Writer, data users.Data) {
	if len(data.Users) == 0 {
		fmt.Fprintln(w, "No users")
		return
	}

	fmt.Fprintf(w, "Found %d user(s):\n\n", len(data.Users))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tJOINED\tPROJECTS\tSHELLS\tHOURS")
	fmt.Fprintln(tw, "--\t----\t------\t--------\t------\t-----")

	for _, u := range data.Users {
		joined := u.CreatedAt
		if t, err := u.Joined(); err == nil {
			joined = t.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			u.ID,
			u.DisplayName("-"),
			joined,
			len(u.Projects),
			strconv.FormatFloat(u.TotalShellsSpent, 'f', -1, 64),
			strconv.FormatFloat(u.PurchasedProgressHours, 'f', -1, 64),
		)
	}
	tw.Flush()
}

type routeRow struct {
	Method      string `json:"method"`
	Pattern     string `json:"pattern"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func routeRows(routes []*page.Route) []routeRow {
	rows := make([]routeRow, len(routes))
	for i, r := range routes {
		rows[i] = routeRow{
			Method:      r.Method,
			Pattern:     r.Pattern,
			Type:        r.Type.String(),
			Description: r.Description,
		}
	}
	return rows
}

func printRoutes(w io.Writer, routes []*page.Route) {
	fmt.Fprintf(w, "Found %d route(s):\n\n", len(routes))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATTERN\tTYPE\tDESCRIPTION")
	fmt.Fprintln(tw, "------\t-------\t----\t-----------")
	for _, r := range routeRows(routes) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Pattern, r.Type, r.Description)
	}
	tw.Flush()
}

func init() {
	devCmd.Flags().IntP("port", "p", 3000, "Port to run dev server on")
	devCmd.Flags().StringP("config", "c", "", "Path to config file")

	usersCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	usersCmd.Flags().StringP("config", "c", "", "Path to config file")

	routesCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	routesCmd.Flags().StringP("config", "c", "", "Path to config file")

	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
