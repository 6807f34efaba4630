package importer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
)

const sampleResponse = `# 来週の注目銘柄

## 【1位】銘柄コード: 6758 企業名: ソニーグループ
ゲーム事業の好調が続く見込み。
半導体需要も追い風。

## 【2位】銘柄コード：9984 企業名：ソフトバンクグループ
**選定理由**
AI投資の拡大期待。

## トヨタ自動車(7203)
週末終値予想: 3,150円
最高値予想: 3,250円
最安値予想: 3,050円
`

func TestParse(t *testing.T) {
	pred := NewParser(3000).Parse("claude-3-sonnet", sampleResponse)

	if len(pred.Picks) != 2 {
		t.Fatalf("expected 2 picks, got %+v", pred.Picks)
	}
	first := pred.Picks[0]
	if first.Rank != 1 || first.StockCode != "6758" || first.CompanyName != "ソニーグループ" {
		t.Errorf("unexpected first pick %+v", first)
	}
	if !strings.Contains(first.Reason, "ゲーム事業の好調") || !strings.Contains(first.Reason, "半導体需要") {
		t.Errorf("reason should span the paragraph: %q", first.Reason)
	}
	second := pred.Picks[1]
	if second.StockCode != "9984" || strings.Contains(second.Reason, "選定理由") {
		t.Errorf("bold lines should be dropped from the reason: %+v", second)
	}

	if !pred.PriceFound || pred.PredictedPrice != 3150 {
		t.Errorf("predicted price = %v (found %v)", pred.PredictedPrice, pred.PriceFound)
	}
	if pred.PredictedHigh == nil || *pred.PredictedHigh != 3250 || pred.PredictedLow == nil || *pred.PredictedLow != 3050 {
		t.Errorf("unexpected range %v / %v", pred.PredictedHigh, pred.PredictedLow)
	}
}

func TestParse_Fallbacks(t *testing.T) {
	content := "1位 8306 三菱UFJ 金利上昇の恩恵\n2位 4502 武田薬品\n終値予想：2,980円\n"
	pred := NewParser(3000).Parse("m", content)
	if len(pred.Picks) != 2 || pred.Picks[0].StockCode != "8306" || pred.Picks[1].StockCode != "4502" {
		t.Errorf("unexpected picks %+v", pred.Picks)
	}
	if pred.PredictedPrice != 2980 {
		t.Errorf("predicted = %v, want 2980", pred.PredictedPrice)
	}

	pred = NewParser(3000).Parse("m", "特に推奨はありません。")
	if len(pred.Picks) != 0 || pred.PriceFound || pred.PredictedPrice != 3000 {
		t.Errorf("expected defaults, got %+v", pred)
	}
	if pred.Picks == nil {
		t.Errorf("picks should be an empty slice")
	}
}

// Property: Parsing never yields more than five picks, ranks are unique and
// ascending, and reasons stay within 300 runes.
func TestProperty_ParseBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("picks are bounded and ordered", prop.ForAll(
		func(ranks []int, filler string) bool {
			var b strings.Builder
			for i, r := range ranks {
				b.WriteString("【")
				b.WriteString(strconv.Itoa(r))
				b.WriteString("位】銘柄コード: ")
				b.WriteString(strconv.Itoa(1000 + i))
				b.WriteString(" 企業名: テスト\n")
				b.WriteString(strings.Repeat(filler, 50))
				b.WriteString("\n\n")
			}
			picks := NewParser(3000).Parse("m", b.String()).Picks
			if len(picks) > MaxPicks {
				return false
			}
			for i, p := range picks {
				if p.Rank < 1 || p.Rank > MaxPicks || len([]rune(p.Reason)) > maxReasonRunes {
					return false
				}
				if i > 0 && picks[i-1].Rank >= p.Rank {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(0, 9)),
		gen.OneConstOf("あ", "ab", "理由 "),
	))

	properties.TestingRun(t)
}


type recordingStore struct {
	fixed     []*models.FixedTrade
	selection []*models.SelectionTrade
}

func (r *recordingStore) SaveFixedTrade(ctx context.Context, t *models.FixedTrade) error {
	t.ID = int64(len(r.fixed) + 1)
	r.fixed = append(r.fixed, t)
	return nil
}

func (r *recordingStore) SaveSelectionTrade(ctx context.Context, t *models.SelectionTrade) error {
	t.ID = int64(len(r.selection) + 1)
	r.selection = append(r.selection, t)
	return nil
}

func TestImport(t *testing.T) {
	root := t.TempDir()
	date := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC) // Sunday
	dir := filepath.Join(root, "20250525")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "claude_response.md"), []byte(sampleResponse), 0644); err != nil {
		t.Fatal(err)
	}

	st := &recordingStore{}
	im := NewImporter(Config{ResponsesDir: root}, st, zerolog.Nop())
	report, err := im.Import(context.Background(), date)
	if err != nil {
		t.Fatal(err)
	}

	monday := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
	if !report.BuyDate.Equal(monday) || report.Total != 3 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(report.Models) != 3 {
		t.Errorf("every configured file should be reported, got %+v", report.Models)
	}

	if len(st.selection) != 2 {
		t.Fatalf("expected 2 selection placeholders, got %d", len(st.selection))
	}
	sel := st.selection[0]
	if sel.Status != models.StatusPending || sel.AnalysisPeriod != models.PeriodOneWeek || sel.PeriodDays != 5 ||
		!sel.BuyDate.Equal(monday) || sel.Notes != "AI自動投入 - 1位選定" || sel.ModelID != "claude-3-sonnet" {
		t.Errorf("unexpected selection placeholder %+v", sel)
	}

	if len(st.fixed) != 1 {
		t.Fatalf("expected 1 fixed placeholder, got %d", len(st.fixed))
	}
	fixed := st.fixed[0]
	if fixed.StockCode != "7203" || fixed.PredictedPrice != 3150 || fixed.Status != models.StatusPending ||
		!fixed.SellDate.Equal(monday.AddDate(0, 0, 4)) {
		t.Errorf("unexpected fixed placeholder %+v", fixed)
	}
}

func TestImport_MissingResponses(t *testing.T) {
	root := t.TempDir()
	im := NewImporter(Config{ResponsesDir: root}, &recordingStore{}, zerolog.Nop())

	_, err := im.Import(context.Background(), time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, errors.ErrResponseNotFound) {
		t.Errorf("missing directory: got %v", err)
	}

	if err := os.MkdirAll(filepath.Join(root, "20250601"), 0755); err != nil {
		t.Fatal(err)
	}
	report, err := im.Import(context.Background(), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, errors.ErrResponseNotFound) {
		t.Errorf("empty directory: got %v", err)
	}
	if len(report.Models) != 3 {
		t.Errorf("missing files should still be reported: %+v", report.Models)
	}
}
