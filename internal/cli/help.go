package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExamplesCmd())
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		Long:  "Display examples of common verification workflows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Weekly Cycle",
					commands: []string{
						"verifier prompt generate        # Write next week's prompt",
						"verifier prompt ask --model-id chatgpt-4",
						"verifier import 20250525        # Store pending records from replies",
						"verifier update 20250601        # Settle once the week has closed",
						"verifier ranking                # See who called it best",
					},
				},
				{
					title: "Record a Single Prediction",
					commands: []string{
						"verifier fixed record --model gpt-4 --stock 7203 --predicted 2550 --buy 2025-05-26 --sell 2025-05-30 --save",
						"verifier select record --model gpt-4 --stock 6758 --period 1ヶ月 --reason 'AI需要' --buy 2025-05-26 --save",
					},
				},
				{
					title: "Review Results",
					commands: []string{
						"verifier summary                # Headline figures",
						"verifier chart                  # Top models",
						"verifier records --model gpt-4 --from 2025-05-01 --to 2025-05-31",
						"verifier records --status PENDING",
					},
				},
				{
					title: "Manage Models",
					commands: []string{
						"verifier models list",
						"verifier models add gpt-4o --name GPT-4o --provider OpenAI",
						"verifier models sync models.yaml",
					},
				},
				{
					title: "Export and Serve",
					commands: []string{
						"verifier export csv --out records.csv",
						"verifier export csv --ranking --out ranking.csv",
						"verifier serve --addr :8000     # JSON API for dashboards",
					},
				},
			}

			for _, ex := range examples {
				output.Bold(ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}
