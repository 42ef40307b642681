package dealdeskctl

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	flagBaseURL string
	flagAPIKey  string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "dealdeskctl",
	Short:         "Ask questions of the dealdesk sales agent",
	Long:          "dealdeskctl talks to a running dealdesk API: ask natural-language questions over the CRM warehouse, inspect the exposed schema, and review past turns.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits nonzero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func client() *Client {
	baseURL := flagBaseURL
	if env := os.Getenv("DEALDESK_BASE_URL"); baseURL == "" && env != "" {
		baseURL = env
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	apiKey := flagAPIKey
	if env := os.Getenv("DEALDESK_API_KEY"); apiKey == "" && env != "" {
		apiKey = env
	}
	return NewClient(baseURL, apiKey, flagTimeout)
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a natural-language question and print the answer table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		spinner, _ := pterm.DefaultSpinner.Start("Thinking...")
		result, err := client().Ask(cmd.Context(), question)
		if err != nil {
			if spinner != nil {
				spinner.Fail("request failed")
			}
			return err
		}
		if spinner != nil {
			_ = spinner.Stop()
		}

		switch result.Status {
		case "answered":
			renderResult(result)
		case "rejected-unsafe":
			pterm.Warning.Printfln("Turn %s rejected as unsafe (%s) after %d repair attempt(s).", result.TurnID, result.ErrorReason, result.Attempts)
			if result.SQL != "" {
				pterm.Println(result.SQL)
			}
		default:
			pterm.Error.Printfln("Turn %s gave up (%s) after %d repair attempt(s).", result.TurnID, result.ErrorReason, result.Attempts)
		}
		return nil
	},
}

func renderResult(result AskResult) {
	pterm.DefaultSection.Println(result.Question)
	pterm.FgGray.Println(result.SQL)

	table := pterm.TableData{result.Columns}
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatCell(value)
		}
		table = append(table, cells)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()

	note := fmt.Sprintf("%d row(s) in %dms, %d repair attempt(s)", result.RowCount, result.ElapsedMS, result.Attempts)
	if result.Truncated {
		note += ", result truncated at the row limit"
	}
	pterm.Info.Println(note)
	if result.Summary != "" {
		pterm.Println(result.Summary)
	}
}

func formatCell(value any) string {
	if value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%.2f", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service liveness",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := client().Health(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(payload)
	},
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Check service readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := client().Ready(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(payload)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema snapshot the agent sees",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := client().Schema(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(payload)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the schema snapshot (admin role)",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := client().RefreshSchema(cmd.Context())
		if err != nil {
			return err
		}
		pterm.Success.Println("schema refreshed")
		return printJSON(payload)
	},
}

var turnsLimit int

var turnsCmd = &cobra.Command{
	Use:   "turns",
	Short: "List recent agent turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		turns, err := client().Turns(cmd.Context(), turnsLimit)
		if err != nil {
			return err
		}
		table := pterm.TableData{{"TURN", "STATUS", "ATTEMPTS", "ROWS", "MS", "QUESTION"}}
		for _, turn := range turns {
			table = append(table, []string{
				shortID(turn.TurnID),
				turn.Status,
				fmt.Sprintf("%d", turn.Attempts),
				fmt.Sprintf("%d", turn.RowCount),
				fmt.Sprintf("%d", turn.ElapsedMS),
				truncateText(turn.Question, 60),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}

func printJSON(payload any) error {
	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	pterm.Println(string(pretty))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "dealdesk API base URL (default http://localhost:8080, or DEALDESK_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key for authenticated requests (or DEALDESK_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 60*time.Second, "HTTP timeout")

	turnsCmd.Flags().IntVar(&turnsLimit, "limit", 20, "number of turns to list")

	rootCmd.AddCommand(askCmd, healthCmd, readyCmd, schemaCmd, refreshCmd, turnsCmd)
}
