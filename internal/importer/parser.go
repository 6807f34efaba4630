// Package importer turns saved model responses into pending trade records.
package importer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxPicks is the number of ranked picks taken from one response.
const MaxPicks = 5

const maxReasonRunes = 300

// Pick is one ranked stock selection extracted from a response.
type Pick struct {
	Rank        int    `json:"rank"`
	StockCode   string `json:"stock_code"`
	CompanyName string `json:"company_name"`
	Reason      string `json:"reason"`
}

// Prediction is everything extracted from one model's response.
type Prediction struct {
	ModelID        string   `json:"model_id"`
	Picks          []Pick   `json:"picks"`
	PredictedPrice float64  `json:"predicted_price"`
	PredictedHigh  *float64 `json:"predicted_high,omitempty"`
	PredictedLow   *float64 `json:"predicted_low,omitempty"`
	PriceFound     bool     `json:"price_found"`
}

var (
	// Tried in order until five picks are found.
	pickPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)【(\d+)位】[^\n]*?銘柄コード[：:]?\s*(\d{4})[^\n]*?企業名[：:]?\s*([^\n]*)`),
		regexp.MustCompile(`(?im)(\d+)位[^\n]*?(\d{4})([^\n]*)`),
		regexp.MustCompile(`(?im)銘柄コード[：:]?\s*(\d{4})[^\n]*?企業名[：:]?\s*([^\n]*)`),
	}

	closePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)週末終値予想[：:]?\s*([0-9,]+)円`),
		regexp.MustCompile(`(?i)終値予想[：:]?\s*([0-9,]+)円`),
		regexp.MustCompile(`(?i)予想[^\n]*?([0-9,]+)円`),
	}

	highPattern = regexp.MustCompile(`最高値予想[：:]?\s*([0-9,]+)円`)
	lowPattern  = regexp.MustCompile(`最安値予想[：:]?\s*([0-9,]+)円`)

	fourDigits = regexp.MustCompile(`\d{4}`)
)

// Parser extracts picks and the fixed-stock price prediction from response text.
type Parser struct {
	defaultPrice float64
}

// NewParser creates a parser that falls back to defaultPrice when a response
// carries no recognisable close prediction.
func NewParser(defaultPrice float64) *Parser {
	return &Parser{defaultPrice: defaultPrice}
}

// Parse extracts a prediction from content.
func (p *Parser) Parse(modelID, content string) Prediction {
	pred := Prediction{
		ModelID:        modelID,
		Picks:          extractPicks(content),
		PredictedPrice: p.defaultPrice,
	}
	if price, ok := firstPrice(content, closePatterns...); ok {
		pred.PredictedPrice = price
		pred.PriceFound = true
	}
	if high, ok := firstPrice(content, highPattern); ok {
		pred.PredictedHigh = &high
	}
	if low, ok := firstPrice(content, lowPattern); ok {
		pred.PredictedLow = &low
	}
	return pred
}

func extractPicks(content string) []Pick {
	picks := []Pick{}
	seenRank := map[int]bool{}
	seenCode := map[string]bool{}

	for _, re := range pickPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			var rank int
			var code, company string
			if len(m) == 4 {
				code, company = m[2], m[3]
				n, err := strconv.Atoi(m[1])
				if err != nil {
					n = len(picks) + 1
				}
				rank = n
			} else {
				code, company = m[1], m[2]
				rank = len(picks) + 1
			}

			// Later patterns re-match lines the earlier ones already took.
			if rank < 1 || rank > MaxPicks || seenRank[rank] || seenCode[code] {
				continue
			}
			seenRank[rank] = true
			seenCode[code] = true
			picks = append(picks, Pick{
				Rank:        rank,
				StockCode:   code,
				CompanyName: strings.TrimSpace(company),
				Reason:      extractReason(content, code),
			})
			if len(picks) >= MaxPicks {
				break
			}
		}
		if len(picks) >= MaxPicks {
			break
		}
	}

	sort.SliceStable(picks, func(i, j int) bool { return picks[i].Rank < picks[j].Rank })
	return picks
}

// extractReason collects the text after the first mention of code, up to the
// next four-digit number or blank line. Headings and bold lines are dropped.
func extractReason(content, code string) string {
	start := strings.Index(content, code)
	if start < 0 {
		return code + " 選定理由（回答ファイル参照）"
	}
	rest := content[start+len(code):]
	end := len(rest)
	if loc := fourDigits.FindStringIndex(rest); loc != nil {
		end = loc[0]
	}
	if i := strings.Index(rest[:end], "\n\n"); i >= 0 {
		end = i
	}
	section := code + rest[:end]

	var lines []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") {
			continue
		}
		lines = append(lines, line)
		if utf8.RuneCountInString(strings.Join(lines, " ")) > 200 {
			break
		}
	}
	if len(lines) == 0 {
		return code + " 選定理由（回答ファイル参照）"
	}
	return truncateRunes(strings.Join(lines, " "), maxReasonRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func firstPrice(content string, patterns ...*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
