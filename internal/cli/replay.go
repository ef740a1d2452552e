package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"intent-trader/internal/replay"
)

func addReplayCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newReplayCmd(app))
}

func newReplayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [trade-log] [output]",
		Short: "Grade executed and missed trades against the plan",
		Long: `Replay a trade log and write one graded summary per trade.

Executed trades start at 100 and lose 10 points for each of: entry more
than 2 points from plan, exit more than 2 points before the planned exit,
and cognitive load above 7. Missed trades score 60.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			in := app.Config.Resolve(app.Config.Replay.TradeLog)
			out := app.Config.Resolve(app.Config.Replay.Output)
			if len(args) > 0 {
				in = args[0]
			}
			if len(args) > 1 {
				out = args[1]
			}

			trades, err := replay.LoadTrades(in)
			if err != nil {
				return err
			}
			summaries := replay.Run(trades)
			if err := replay.WriteSummaries(out, summaries); err != nil {
				return err
			}
			issues := replay.Issues(summaries)
			app.Logger.Info().
				Str("input", in).
				Str("output", out).
				Int("trades", len(summaries)).
				Int("issues", issues).
				Msg("Replay complete")

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"output":    out,
					"trades":    len(summaries),
					"issues":    issues,
					"summaries": summaries,
				})
			}

			table := NewTable(output, "SETUP", "SYMBOL", "TYPE", "SCORE", "FEEDBACK")
			for _, s := range summaries {
				score := "-"
				if s.ReplayScore != nil {
					score = fmt.Sprintf("%d", *s.ReplayScore)
				}
				feedback := ""
				if len(s.Feedback) > 0 {
					feedback = TruncateString(s.Feedback[0], 50)
					if len(s.Feedback) > 1 {
						feedback += fmt.Sprintf(" (+%d)", len(s.Feedback)-1)
					}
				}
				table.AddRow(s.SetupID, s.Symbol, s.Type, score, feedback)
			}
			table.Render()
			output.Println()
			output.Success("Replay complete. %d trades processed.", len(summaries))
			if issues > 0 {
				output.Warning("%d trades with issues", issues)
			}
			output.Dim("Summary written to %s", out)
			return nil
		},
	}
}
