package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"llm-trade-verifier/internal/importer"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/pricing"
	"llm-trade-verifier/internal/prompt"
	"llm-trade-verifier/pkg/utils"
)

// addPlanningCommands adds the weekly prompt commands.
func addPlanningCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Weekly prediction prompt",
		Long:  "Generate the weekly prediction prompt and optionally send it to a model.",
	}
	cmd.AddCommand(newPromptGenerateCmd(app))
	cmd.AddCommand(newPromptAskCmd(app))
	rootCmd.AddCommand(cmd)
}

// promptDate resolves --date, defaulting to today in Tokyo.
func promptDate(cmd *cobra.Command) (time.Time, error) {
	arg, _ := cmd.Flags().GetString("date")
	if arg == "" {
		return utils.TokyoToday(), nil
	}
	return parseDay("date", arg)
}

func (a *App) promptGenerator() (*prompt.Generator, error) {
	code := a.Config.Import.FixedStockCode
	return prompt.NewGenerator(a.Config.Prompt.OutputDir, code, pricing.StockName(code), a.Logger)
}

func newPromptGenerateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the prompt for next week",
		Example: `  verifier prompt generate
  verifier prompt generate --date 2025-05-25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			now, err := promptDate(cmd)
			if err != nil {
				return err
			}
			gen, err := app.promptGenerator()
			if err != nil {
				return err
			}
			path, content, err := gen.Generate(now)
			if err != nil {
				output.Error("Failed to generate prompt: %v", err)
				return err
			}

			monday, friday := utils.NextWeek(now)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"path":       path,
					"week_start": FormatDate(monday),
					"week_end":   FormatDate(friday),
					"prompt":     content,
				})
			}
			output.Success("✓ Prompt written to %s", path)
			output.Printf("  Target week: %s - %s\n", FormatDate(monday), FormatDate(friday))
			output.Dim("Paste it into each model and save the replies under %s/%s/",
				app.Config.Import.ResponsesDir, now.Format(importer.DateLayout))
			return nil
		},
	}
	cmd.Flags().String("date", "", "Generation date (YYYY-MM-DD, default: today)")
	return cmd
}

// responseFile finds the response file name configured for modelID.
func responseFile(files map[string]string, modelID string) (string, bool) {
	names := make([]string, 0, len(files))
	for f := range files {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		if files[f] == modelID {
			return f, true
		}
	}
	return modelID + "_response.md", false
}

func newPromptAskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Send the prompt to a model and save its reply",
		Long: `Render next week's prompt, send it to the configured OpenAI-compatible model
and save the reply as the response file of --model-id, ready for
'verifier import'.`,
		Example: `  verifier prompt ask --model-id chatgpt-4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			modelID, _ := cmd.Flags().GetString("model-id")
			if modelID == "" {
				return requireArg(output, "model-id")
			}
			llmModel, _ := cmd.Flags().GetString("llm-model")
			if llmModel == "" {
				llmModel = app.Config.LLM.Model
			}

			now, err := promptDate(cmd)
			if err != nil {
				return err
			}
			gen, err := app.promptGenerator()
			if err != nil {
				return err
			}
			content, err := gen.Render(now)
			if err != nil {
				return err
			}

			client, err := prompt.NewOpenAIClient(app.Config.Credentials.OpenAI.APIKey, llmModel, app.Config.LLM.BaseURL)
			if err != nil {
				output.Error("OpenAI API key not configured. Set OPENAI_API_KEY or edit credentials.toml.")
				return err
			}

			output.Info("Asking %s...", llmModel)
			reply, err := prompt.Ask(ctx, client, content)
			if err != nil {
				msg := logging.RedactErr(err)
				app.Logger.Error().Str("model", modelID).Str("error", msg).Msg("Model request failed")
				output.Error("Model request failed: %s", msg)
				return fmt.Errorf("model request failed: %s", msg)
			}

			file, known := responseFile(app.Config.Import.ResponseFiles, modelID)
			path, err := prompt.SaveResponse(app.Config.Import.ResponsesDir, now, file, reply)
			if err != nil {
				return err
			}
			app.Logger.Info().Str("model", modelID).Str("path", path).Msg("Model response saved")

			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path, "model_id": modelID})
			}
			output.Success("✓ Reply saved to %s", path)
			if !known {
				output.Warning("%s is not in import.response_files; add it there so 'verifier import' picks it up.", file)
			}
			return nil
		},
	}
	cmd.Flags().String("model-id", "", "Registry model ID the reply is attributed to")
	cmd.Flags().String("llm-model", "", "Model name sent to the API (default: llm.model)")
	cmd.Flags().String("date", "", "Generation date (YYYY-MM-DD, default: today)")
	return cmd
}
