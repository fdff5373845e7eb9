package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the model calls made by each pipeline stage",
}

// openEvents opens the store holding the LLM event log.
func openEvents(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")
		if purpose != "" && !llm.KnownPurpose(purpose) {
			return fmt.Errorf("unknown purpose %q (want one of %s)", purpose, strings.Join(stagePurposes(), ", "))
		}

		s, err := openEvents(cmd)
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

		if len(events) == 0 {
			fmt.Println("No LLM events found.")
			return nil
		}

		// Header.
		fmt.Printf("%-5s  %-19s  %-14s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("\u2500", 100))

		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-14s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View full request/response for an LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openEvents(cmd)
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

		sep := strings.Repeat("\u2500", 60)

		fmt.Printf("ID:        %d\n", e.ID)
		fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Provider:  %s\n", e.Provider)
		fmt.Printf("Model:     %s\n", e.Model)
		fmt.Printf("Stage:     %s\n", stageLabel(e.Purpose))
		fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", e.ErrorMessage)
		}

		fmt.Println()
		fmt.Println(sep)
		fmt.Println("REQUEST")
		fmt.Println(sep)
		if e.RequestBody != "" {
			fmt.Println(e.RequestBody)
		} else {
			fmt.Println("(not captured)")
		}

		fmt.Println(sep)
		fmt.Println("RESPONSE")
		fmt.Println(sep)
		if e.ResponseBody != "" {
			fmt.Println(e.ResponseBody)
		} else {
			fmt.Println("(not captured)")
		}

		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per pipeline stage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openEvents(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		usage, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(usage) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		rows := orderByStage(usage)
		var totalCalls, totalIn, totalOut int
		for _, u := range rows {
			totalCalls += u.Calls
			totalIn += u.InputTokens
			totalOut += u.OutputTokens
		}

		fmt.Println("Usage by Pipeline Stage")
		fmt.Println(strings.Repeat("\u2500", 84))
		fmt.Printf("%-22s  %6s  %10s  %10s  %7s  %8s\n",
			"Stage", "Calls", "Input", "Output", "Share", "Avg Ms")
		fmt.Println(strings.Repeat("\u2500", 84))
		for _, u := range rows {
			share := 0.0
			if all := totalIn + totalOut; all > 0 {
				share = 100 * float64(u.InputTokens+u.OutputTokens) / float64(all)
			}
			fmt.Printf("%-22s  %6d  %10d  %10d  %6.1f%%  %8d\n",
				truncate(stageLabel(u.Purpose), 22), u.Calls, u.InputTokens, u.OutputTokens, share, u.AvgLatencyMs)
		}
		fmt.Println(strings.Repeat("\u2500", 84))
		fmt.Printf("%-22s  %6d  %10d  %10d\n", "TOTAL", totalCalls, totalIn, totalOut)

		// Each podcast costs one explanation call; each upload one tree
		// call plus one call per question.
		if per := perCall(rows, llm.PurposeExplanation); per > 0 {
			fmt.Printf("\nAverage tokens per podcast explanation: %d\n", per)
		}
		if per := perCall(rows, llm.PurposeQuestion); per > 0 {
			fmt.Printf("Average tokens per assessment question: %d\n", per)
		}

		modelUsage, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		printModelCost(modelUsage)
		return nil
	},
}

// orderByStage sorts usage rows into pipeline order. Purposes outside the
// known stages follow in their original order.
func orderByStage(usage []store.PurposeUsage) []store.PurposeUsage {
	out := make([]store.PurposeUsage, 0, len(usage))
	for _, st := range llm.Stages {
		for _, u := range usage {
			if u.Purpose == st.Purpose {
				out = append(out, u)
			}
		}
	}
	for _, u := range usage {
		if !llm.KnownPurpose(u.Purpose) {
			out = append(out, u)
		}
	}
	return out
}

func perCall(rows []store.PurposeUsage, purpose string) int {
	for _, u := range rows {
		if u.Purpose == purpose && u.Calls > 0 {
			return (u.InputTokens + u.OutputTokens) / u.Calls
		}
	}
	return 0
}

func stageLabel(purpose string) string {
	for _, st := range llm.Stages {
		if st.Purpose == purpose {
			return st.Label
		}
	}
	return purpose
}

func stagePurposes() []string {
	out := make([]string, len(llm.Stages))
	for i, st := range llm.Stages {
		out[i] = st.Purpose
	}
	return out
}

func printModelCost(modelUsage []store.ModelUsage) {
	if len(modelUsage) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Estimated Cost (USD)")
	fmt.Println(strings.Repeat("\u2500", 72))
	fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Println(strings.Repeat("\u2500", 72))

	var totalCost float64
	var unknown []string
	for _, mu := range modelUsage {
		cost := llm.LookupCost(mu.Model)
		if cost == nil {
			unknown = append(unknown, mu.Model)
			fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
				truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, "?")
			continue
		}
		c := cost.Cost(mu.InputTokens, mu.OutputTokens)
		totalCost += c
		fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
			truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, formatCost(c))
	}

	fmt.Println(strings.Repeat("\u2500", 72))
	label := "TOTAL"
	if len(unknown) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))
	if len(unknown) > 0 {
		fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by stage: skill-tree, question, explanation, answer or feedback")
	llmListCmd.Flags().Duration("since", 0, "Only show events newer than this, e.g. 24h")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
