package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/config"
	"github.com/kalambet/phoneadvisor/internal/dialogue"
	"github.com/kalambet/phoneadvisor/internal/session"
)

// localManager loads the catalog named by --catalog or the configuration
// and returns a session manager over it that records no history.
func localManager(cmd *cobra.Command) (*session.Manager, error) {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		cfg.Catalog.Path = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	return session.NewManager(cat, nil, session.Options{TTL: cfg.Session.TTL, CleanupInterval: -1}), nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the advisor in the terminal",
	Long: `Start an interactive conversation with the phone advisor.

Describe what you need ("a samsung under 20000 with good camera") and answer
its questions. Type /reset to start over and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := localManager(cmd)
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), sessions, cmd.InOrStdin(), cmd.OutOrStdout(), limit)
	},
}

func init() {
	chatCmd.Flags().String("catalog", "", "catalog CSV (default: catalog.path from config)")
	chatCmd.Flags().Int("limit", 10, "maximum number of phones to print per search")
}

func runChat(ctx context.Context, sessions *session.Manager, in io.Reader, out io.Writer, limit int) error {
	id := sessions.Create()
	defer sessions.Delete(id)

	if err := printOpener(sessions, id, out); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := sessions.Reset(id); err != nil {
				return err
			}
			if err := printOpener(sessions, id, out); err != nil {
				return err
			}
			continue
		}

		turn, err := sessions.Send(ctx, id, line)
		if err != nil {
			return err
		}
		printAssistant(out, turn.Reply)
		if !turn.ShouldSearch {
			continue
		}
		if err := printNotices(sessions, id, out); err != nil {
			return err
		}
		if len(turn.Results) > 0 {
			printPhones(out, turn.Results, limit)
		}
	}
	return scanner.Err()
}

// printNotices prints the assistant messages that follow the latest user
// message, which after a search are its notices.
func printNotices(sessions *session.Manager, id string, out io.Writer) error {
	transcript, err := sessions.Transcript(id)
	if err != nil {
		return err
	}
	i := len(transcript) - 1
	for i >= 0 && transcript[i].Role != dialogue.RoleUser {
		i--
	}
	for _, m := range transcript[i+1:] {
		printAssistant(out, m.Text)
	}
	return nil
}

func printOpener(sessions *session.Manager, id string, out io.Writer) error {
	transcript, err := sessions.Transcript(id)
	if err != nil {
		return err
	}
	for _, m := range transcript {
		printAssistant(out, m.Text)
	}
	return nil
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog with a single description",
	Long: `Extract filters from a description and list the matching phones.

Examples:
  phoneadvisor search samsung under 20000
  phoneadvisor search "gaming phone with 12gb ram" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		asJSON, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		sessions, err := localManager(cmd)
		if err != nil {
			return err
		}
		res, err := sessions.DirectSearch(cmd.Context(), query)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if len(res.Summary) > 0 {
			fmt.Fprintf(out, "Looking for %s\n\n", strings.Join(res.Summary, ", "))
		}
		if len(res.Results) == 0 {
			fmt.Fprintln(out, "No phones found.")
			return nil
		}
		printPhones(out, res.Results, limit)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("catalog", "", "catalog CSV (default: catalog.path from config)")
	searchCmd.Flags().Bool("json", false, "print the full result as JSON")
	searchCmd.Flags().Int("limit", 20, "maximum number of phones to print (0 for all)")
}

// printPhones writes rows as an aligned table, at most limit of them when
// limit is positive.
func printPhones(out io.Writer, rows []catalog.Row, limit int) {
	shown := rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PHONE\tPRICE\tRAM\tSTORAGE\tBATTERY\tCAMERA\tSCREEN")
	for _, r := range shown {
		fmt.Fprintf(tw, "%s\t₹%.0f\t%gGB\t%gGB\t%gmAh\t%gMP\t%g\"\n",
			r.Name(), r.PriceRs, r.RAMGB, r.StorageGB, r.BatteryMAh, r.BackCameraMP, r.ScreenInches)
	}
	tw.Flush()

	if more := len(rows) - len(shown); more > 0 {
		fmt.Fprintf(out, "... and %d more\n", more)
	}
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent searches recorded by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		records, err := fetchHistory(cmd.Context(), client, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No searches found.")
			return nil
		}
		for _, r := range records {
			query := r.Query
			if len(query) > 60 {
				query = query[:60] + "..."
			}
			fmt.Fprintf(out, "%s  %s  %-8s  %3d  %s\n",
				colorize(colorCyan, shortID(r.ID)),
				r.CreatedAt,
				r.Mode,
				r.ResultCount,
				query,
			)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recorded search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/searches/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Deleted search %s", args[0])
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of searches to list")
	historyCmd.AddCommand(historyDeleteCmd)
}

type historyRecord struct {
	ID          string          `json:"id"`
	CreatedAt   string          `json:"created_at"`
	SessionID   string          `json:"session_id"`
	Mode        string          `json:"mode"`
	Query       string          `json:"query"`
	Constraints json.RawMessage `json:"constraints"`
	ResultCount int             `json:"result_count"`
}

func fetchHistory(ctx context.Context, client *apiClient, limit int) ([]historyRecord, error) {
	resp, err := client.get(ctx, fmt.Sprintf("/searches?limit=%d", limit))
	if err != nil {
		return nil, err
	}
	var records []historyRecord
	if err := decodeJSON(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnvalidated()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "("+k.Source+")"))
		}
		if err := cfg.Validate(); err != nil {
			printWarning("%v", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value in the config file.

Valid keys: %s`, strings.Join(config.ValidKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
