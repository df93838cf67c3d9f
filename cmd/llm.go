package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/sldscreen/internal/llm"
	"github.com/abhisek/sldscreen/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Audit recommendation requests sent to the LLM provider",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded LLM calls, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")
		failed, _ := cmd.Flags().GetBool("failed")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{Limit: limit, Purpose: purpose}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if failed {
			kept := events[:0]
			for _, e := range events {
				if !e.Success {
					kept = append(kept, e)
				}
			}
			events = kept
		}
		return printEvents(cmd.OutOrStdout(), events)
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the captured request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(e)
		}
		printEvent(out, e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise token usage and estimated cost of successful calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		byPurpose, err := s.EventRepo().LLMUsageByPurpose(cmd.Context())
		if err != nil {
			return fmt.Errorf("usage by purpose: %w", err)
		}
		byModel, err := s.EventRepo().LLMUsageByModel(cmd.Context())
		if err != nil {
			return fmt.Errorf("usage by model: %w", err)
		}
		printUsage(cmd.OutOrStdout(), byPurpose, byModel)
		return nil
	},
}

const timeLayout = "2006-01-02 15:04:05"

func printEvents(w io.Writer, events []store.LLMEvent) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No LLM calls recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tPURPOSE\tMODEL\tIN\tOUT\tMS\tRESULT")
	for _, e := range events {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			e.ID, e.Timestamp.Local().Format(timeLayout), e.Purpose, e.Model,
			e.InputTokens, e.OutputTokens, e.LatencyMs, result)
	}
	return tw.Flush()
}

func printEvent(w io.Writer, e *store.LLMEvent) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Event\t%d\n", e.ID)
	fmt.Fprintf(tw, "Time\t%s\n", e.Timestamp.Local().Format(timeLayout))
	fmt.Fprintf(tw, "Provider\t%s (%s)\n", e.Provider, e.Model)
	fmt.Fprintf(tw, "Purpose\t%s\n", e.Purpose)
	fmt.Fprintf(tw, "Tokens\t%d in, %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Fprintf(tw, "Latency\t%dms\n", e.LatencyMs)
	if e.Success {
		fmt.Fprintf(tw, "Result\tok\n")
	} else {
		fmt.Fprintf(tw, "Result\tfailed: %s\n", e.ErrorMessage)
	}
	tw.Flush()

	section(w, "Request", e.RequestBody)
	section(w, "Response", e.ResponseBody)
}

// section prints a captured body, re-indenting it when it is JSON.
func section(w io.Writer, title, body string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
	if body == "" {
		fmt.Fprintln(w, "(not captured)")
		return
	}
	var v any
	if json.Unmarshal([]byte(body), &v) == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			body = string(pretty)
		}
	}
	fmt.Fprintln(w, body)
}

func printUsage(w io.Writer, byPurpose, byModel []store.UsageStat) {
	if len(byPurpose) == 0 {
		fmt.Fprintln(w, "No successful LLM calls recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PURPOSE\tCALLS\tIN\tOUT\tAVG MS\t")
	var calls, in, out int
	for _, st := range byPurpose {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", st.Purpose, st.Calls, st.InputTokens, st.OutputTokens, st.AvgLatencyMs)
		calls += st.Calls
		in += st.InputTokens
		out += st.OutputTokens
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t\t\n", calls, in, out)
	tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MODEL\tCALLS\tCOST (USD)\t")
	var total float64
	var unpriced []string
	for _, mu := range byModel {
		price := llm.LookupCost(mu.Model)
		if price == nil {
			unpriced = append(unpriced, mu.Model)
			fmt.Fprintf(tw, "%s\t%d\t?\t\n", mu.Model, mu.Calls)
			continue
		}
		c := price.Cost(mu.InputTokens, mu.OutputTokens)
		total += c
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", mu.Model, mu.Calls, formatCost(c))
	}
	fmt.Fprintf(tw, "total\t\t%s\t\n", formatCost(total))
	tw.Flush()

	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nNo pricing for %s; the total excludes them.\n", strings.Join(unpriced, ", "))
	}
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Maximum number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show calls with this purpose (e.g. recommendations)")
	llmListCmd.Flags().Duration("since", 0, "Only show calls newer than this (e.g. 24h)")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")
	llmViewCmd.Flags().Bool("json", false, "Print the event as JSON")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
