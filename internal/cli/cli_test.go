package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/analytics"
	"llm-trade-verifier/internal/config"
	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/importer"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/pricing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Dir:      dir,
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "verifier.db")},
		Pricing: config.PricingConfig{
			Source:   config.PriceSourceSample,
			Timeout:  time.Second,
			Timezone: "Asia/Tokyo",
		},
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
		Import: config.ImportConfig{
			ResponsesDir:          filepath.Join(dir, "responses"),
			FixedStockCode:        "7203",
			DefaultPredictedPrice: 3000,
			ResponseFiles:         importer.DefaultResponseFiles(),
		},
		Prompt: config.PromptConfig{OutputDir: filepath.Join(dir, "prompts")},
		LLM:    config.LLMConfig{Model: "gpt-4o"},
	}
}

// run executes one command line against cfg and returns its stdout.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg, zerolog.Nop())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decoding %q: %v", s, err)
	}
	return v
}

func TestVersionAndConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.OpenAI.APIKey = "sk-secret"

	out := mustRun(t, cfg, "version", "--json")
	if decodeJSON[map[string]string](t, out)["version"] != Version {
		t.Errorf("version output %s", out)
	}

	out = mustRun(t, cfg, "config", "show", "--json")
	if strings.Contains(out, "sk-secret") {
		t.Error("config show must not print credentials")
	}
	if !strings.Contains(out, "verifier.db") {
		t.Errorf("config show = %s", out)
	}

	out = mustRun(t, cfg, "config", "show")
	if !strings.Contains(out, "Sample Codes:") || !strings.Contains(out, "7203") {
		t.Errorf("sample source should list its codes: %s", out)
	}
	cfg.Pricing.Source = config.PriceSourceYahoo
	if out = mustRun(t, cfg, "config", "show"); strings.Contains(out, "Sample Codes:") {
		t.Errorf("live source should not list sample codes: %s", out)
	}
	cfg.Pricing.Source = config.PriceSourceSample

	out = mustRun(t, cfg, "config", "path")
	if strings.TrimSpace(out) != filepath.Join(cfg.Dir, "config.toml") {
		t.Errorf("config path = %q", out)
	}

	mustRun(t, cfg, "config", "validate")
	cfg.Pricing.Source = "ticker-tape"
	if _, err := run(t, cfg, "config", "validate"); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

func TestRecordRankAndExport(t *testing.T) {
	cfg := testConfig(t)

	out := mustRun(t, cfg, "fixed", "record", "--json",
		"--model", "claude-3-sonnet", "--stock", "7203", "--predicted", "2500", "--high", "2600",
		"--buy", "2025-05-26", "--sell", "2025-05-30")
	preview := decodeJSON[models.FixedTrade](t, out)
	if preview.ID != 0 || preview.BuyPrice <= 0 || preview.PeriodDays != 4 || preview.PredictedHigh == nil {
		t.Errorf("unsaved preview = %+v", preview)
	}

	out = mustRun(t, cfg, "fixed", "record", "--json", "--save",
		"--model", "claude-3-sonnet", "--stock", "7203", "--predicted", "2500",
		"--buy", "2025-05-26", "--sell", "2025-05-30")
	saved := decodeJSON[models.FixedTrade](t, out)
	if saved.ID == 0 || saved.Status != models.StatusSettled {
		t.Errorf("saved = %+v", saved)
	}
	if saved.BuyPrice != preview.BuyPrice || saved.SellPrice != preview.SellPrice {
		t.Errorf("sample prices should be deterministic: %+v vs %+v", saved, preview)
	}

	out = mustRun(t, cfg, "select", "record", "--json", "--save",
		"--model", "gpt-4", "--stock", "６７５８", "--period", "1ヶ月", "--reason", "半導体需要",
		"--buy", "2025-05-24")
	pick := decodeJSON[models.SelectionTrade](t, out)
	if pick.StockCode != "6758" || pick.BuyDate.Weekday() != time.Friday {
		t.Errorf("pick = %+v", pick)
	}

	out = mustRun(t, cfg, "ranking", "--json")
	ranking := decodeJSON[[]analytics.ModelStats](t, out)
	if len(ranking) != 2 {
		t.Fatalf("ranking = %+v", ranking)
	}
	if ranking[0].ModelName == ranking[0].ModelID && ranking[1].ModelName == ranking[1].ModelID {
		t.Errorf("registered models should show display names: %+v", ranking)
	}

	out = mustRun(t, cfg, "summary", "--json")
	summary := decodeJSON[analytics.Summary](t, out)
	if summary.TotalAnalyses != 2 || summary.UniqueModelCount != 2 {
		t.Errorf("summary = %+v", summary)
	}

	out = mustRun(t, cfg, "chart", "--json")
	if chart := decodeJSON[analytics.ChartData](t, out); len(chart.Labels) != 2 {
		t.Errorf("chart = %+v", chart)
	}

	out = mustRun(t, cfg, "records", "--json", "--model", "gpt-4", "--to", "2099-12-31")
	view := decodeJSON[analytics.FilteredView](t, out)
	if view.TotalCount != 1 || len(view.SelectionRecords) != 1 || len(view.FixedRecords) != 0 {
		t.Errorf("records = %+v", view)
	}

	// Human-readable output renders without error.
	mustRun(t, cfg, "ranking")
	mustRun(t, cfg, "records")
	mustRun(t, cfg, "summary")

	path := filepath.Join(t.TempDir(), "records.csv")
	mustRun(t, cfg, "export", "csv", "--out", path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "7203") || !strings.Contains(string(b), "6758") {
		t.Errorf("csv = %s", b)
	}

	out = mustRun(t, cfg, "export", "csv", "--type", "selection")
	if !strings.Contains(out, "6758") || strings.Contains(out, "7203") || strings.Contains(out, "予想株価") {
		t.Errorf("selection csv = %s", out)
	}

	out = mustRun(t, cfg, "export", "csv", "--ranking")
	if !strings.Contains(out, "順位") {
		t.Errorf("ranking csv = %s", out)
	}
}

func TestRecordsRejectsBadFilter(t *testing.T) {
	cfg := testConfig(t)
	for _, args := range [][]string{
		{"records", "--order", "up"},
		{"records", "--from", "May 1"},
		{"records", "--min-return", "5", "--max-return", "1"},
	} {
		if _, err := run(t, cfg, args...); !errors.Is(err, errors.ErrInputValidation) {
			t.Errorf("%v: expected validation error, got %v", args, err)
		}
	}
}

func TestRecordRequiresFlags(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, cfg, "fixed", "record", "--stock", "7203", "--buy", "2025-05-26", "--sell", "2025-05-30")
	if !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("expected missing --model error, got %v", err)
	}
	_, err = run(t, cfg, "select", "record", "--model", "m", "--stock", "7203", "--reason", "r", "--buy", "2025-05-26", "--period", "2週間")
	if !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("expected unknown period error, got %v", err)
	}
}

func TestImportThenUpdate(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.Import.ResponsesDir, "20250525")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	response := "【1位】銘柄コード: 6758 企業名: ソニーグループ\nゲーム事業が好調。\n\n週末終値予想: 2,550円\n"
	if err := os.WriteFile(filepath.Join(dir, "chatgpt_response.md"), []byte(response), 0644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, cfg, "import", "20250525", "--json")
	report := decodeJSON[importer.ImportReport](t, out)
	if report.Total != 2 || report.BuyDate.Weekday() != time.Monday {
		t.Errorf("import report = %+v", report)
	}

	out = mustRun(t, cfg, "records", "--json", "--status", "pending")
	if view := decodeJSON[analytics.FilteredView](t, out); view.TotalCount != 2 {
		t.Errorf("pending records = %+v", view)
	}

	out = mustRun(t, cfg, "update", "20250601", "--json")
	backfill := decodeJSON[pricing.BackfillReport](t, out)
	if backfill.Updated != 2 || backfill.Failed != 0 {
		t.Errorf("backfill = %+v", backfill)
	}

	out = mustRun(t, cfg, "records", "--json", "--status", "SETTLED", "--type", "fixed")
	view := decodeJSON[analytics.FilteredView](t, out)
	if len(view.FixedRecords) != 1 || view.FixedRecords[0].PredictedPrice != 2550 || view.FixedRecords[0].BuyPrice <= 0 {
		t.Errorf("settled fixed = %+v", view.FixedRecords)
	}

	if _, err := run(t, cfg, "import", "2025-05-25"); !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("expected date validation error, got %v", err)
	}
	if _, err := run(t, cfg, "import", "20250101"); !errors.Is(err, errors.ErrResponseNotFound) {
		t.Errorf("expected missing responses error, got %v", err)
	}
}

func TestModelsCommands(t *testing.T) {
	cfg := testConfig(t)

	list := decodeJSON[[]models.AIModel](t, mustRun(t, cfg, "models", "list", "--json"))
	if len(list) != 3 {
		t.Fatalf("default models = %+v", list)
	}

	mustRun(t, cfg, "models", "add", "gpt-4o", "--name", "GPT-4o", "--provider", "OpenAI")
	mustRun(t, cfg, "models", "deactivate", "gemini-pro")

	seed := filepath.Join(t.TempDir(), "models.yaml")
	content := "models:\n  - code: llama-3\n    display_name: Llama 3\n    provider: Meta\n"
	if err := os.WriteFile(seed, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	out := mustRun(t, cfg, "models", "sync", seed, "--json")
	if decodeJSON[map[string]int](t, out)["synced"] != 1 {
		t.Errorf("sync = %s", out)
	}

	list = decodeJSON[[]models.AIModel](t, mustRun(t, cfg, "models", "list", "--json"))
	active := map[string]bool{}
	for _, m := range list {
		active[m.Code] = m.Active
	}
	if len(list) != 5 || active["gemini-pro"] || !active["gpt-4o"] || !active["llama-3"] {
		t.Errorf("models = %+v", list)
	}

	if _, err := run(t, cfg, "models", "deactivate", "nobody"); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPromptGenerate(t *testing.T) {
	cfg := testConfig(t)
	out := mustRun(t, cfg, "prompt", "generate", "--date", "2025-05-25", "--json")
	res := decodeJSON[map[string]string](t, out)
	if res["week_start"] != "2025-05-26" || res["week_end"] != "2025-05-30" {
		t.Errorf("prompt generate = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(cfg.Prompt.OutputDir, "weekly_prompt_20250525.md")); err != nil {
		t.Errorf("prompt file missing: %v", err)
	}

	if _, err := run(t, cfg, "prompt", "ask", "--model-id", "chatgpt-4"); !errors.Is(err, errors.ErrLLMNotConfigured) {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestMigrateStatus(t *testing.T) {
	cfg := testConfig(t)
	out := mustRun(t, cfg, "migrate", "status", "--json")
	if !strings.Contains(out, "001_initial_schema") || !strings.Contains(out, "003_add_prediction_range") {
		t.Errorf("migrate status = %s", out)
	}
}

func TestResponseFile(t *testing.T) {
	files := importer.DefaultResponseFiles()
	if f, ok := responseFile(files, "chatgpt-4"); !ok || f != "chatgpt_response.md" {
		t.Errorf("responseFile = %q %v", f, ok)
	}
	if f, ok := responseFile(files, "llama-3"); ok || f != "llama-3_response.md" {
		t.Errorf("responseFile = %q %v", f, ok)
	}
}

func TestStoreClosedAfterEveryRun(t *testing.T) {
	app := &App{Config: testConfig(t), Logger: zerolog.Nop()}
	exec := func(args ...string) error {
		root := newRootCmd(app)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		return root.Execute()
	}

	if err := exec("models", "deactivate", "nobody"); !errors.Is(err, errors.ErrDataNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if app.store != nil {
		t.Error("store left open after a failed command")
	}

	if err := exec("migrate", "status"); err != nil {
		t.Fatal(err)
	}
	if app.store != nil {
		t.Error("store left open after a successful command")
	}
}
