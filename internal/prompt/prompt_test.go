package prompt

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/importer"
)

func TestRender(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), "7203", "トヨタ自動車", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	// Sunday: the target week starts tomorrow.
	out, err := g.Render(time.Date(2025, 5, 25, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"作成日: 2025年05月25日",
		"2025年05月26日(月) 〜 2025年05月30日(金)",
		"トヨタ自動車(7203)",
		"週末終値予想",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Monday: the following week.
	out, err = g.Render(time.Date(2025, 5, 26, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2025年06月02日(月)") {
		t.Errorf("monday should target next week")
	}
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated")
	g, err := NewGenerator(dir, "7203", "トヨタ自動車", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 5, 23, 18, 0, 0, 0, time.UTC)
	path, content, err := g.Generate(now)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "weekly_prompt_20250523.md" {
		t.Errorf("unexpected file name %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != content {
		t.Errorf("written prompt differs from returned content")
	}
}

type fakeCompleter struct {
	reply  string
	err    error
	system string
}

func (f *fakeCompleter) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	f.system = system
	return f.reply, f.err
}

func TestAsk(t *testing.T) {
	if _, err := Ask(context.Background(), nil, "p"); !errors.Is(err, errors.ErrLLMNotConfigured) {
		t.Errorf("nil client: got %v", err)
	}
	if _, err := Ask(context.Background(), &fakeCompleter{reply: "  "}, "p"); err == nil {
		t.Errorf("blank reply should fail")
	}
	fc := &fakeCompleter{reply: "【1位】銘柄コード: 6758 企業名: ソニーグループ\n"}
	reply, err := Ask(context.Background(), fc, "p")
	if err != nil || reply != fc.reply || fc.system == "" {
		t.Errorf("Ask = %q, %v", reply, err)
	}
}

func TestSaveResponse_ReadableByImporter(t *testing.T) {
	root := t.TempDir()
	date := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	reply := "【1位】銘柄コード: 6758 企業名: ソニーグループ\n好決算。\n\n週末終値予想: 3,100円\n"
	if _, err := SaveResponse(root, date, "chatgpt_response.md", reply); err != nil {
		t.Fatal(err)
	}

	im := importer.NewImporter(importer.Config{ResponsesDir: root}, nil, zerolog.Nop())
	preds, _, err := im.ParseDir(date)
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 1 || preds[0].ModelID != "chatgpt-4" || preds[0].PredictedPrice != 3100 {
		t.Errorf("unexpected predictions %+v", preds)
	}
}

func TestOpenAIClient(t *testing.T) {
	if _, err := NewOpenAIClient("", "gpt-4o", ""); !errors.Is(err, errors.ErrLLMNotConfigured) {
		t.Errorf("missing key: got %v", err)
	}

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","created":0,"model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"週末終値予想: 3,000円"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("test-key", "gpt-4o", srv.URL+"/v1")
	if err != nil {
		t.Fatal(err)
	}
	reply, err := client.CompleteWithSystem(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "週末終値予想: 3,000円" || gotPath != "/v1/chat/completions" {
		t.Errorf("reply %q via %s", reply, gotPath)
	}
}
