package pricing

import (
	"strings"

	"llm-trade-verifier/internal/errors"
)

// DefaultMarketSuffix is appended to a stock code to form a Tokyo listing symbol.
const DefaultMarketSuffix = ".T"

var sampleNames = map[string]string{
	"7203": "トヨタ自動車",
	"6758": "ソニーグループ",
	"9984": "ソフトバンクグループ",
	"8306": "三菱UFJフィナンシャルグループ",
	"4502": "武田薬品工業",
	"1234": "テスト企業1",
	"5678": "テスト企業2",
}

// NormalizeStockCode strips everything but digits from code, so "7203.T" and
// " 7203 " both become "7203". The result must be four digits.
func NormalizeStockCode(code string) (string, error) {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '０' && r <= '９':
			// full-width digits from pasted Japanese text
			b.WriteRune('0' + (r - '０'))
		}
	}
	norm := b.String()
	if len(norm) != 4 {
		return "", errors.NewValidationError("stock_code", code, "must be a 4-digit code")
	}
	return norm, nil
}

// Symbol returns the exchange symbol for a normalized code.
func Symbol(code, suffix string) string {
	if suffix == "" {
		suffix = DefaultMarketSuffix
	}
	return code + suffix
}

// StockName returns the company name for the sample codes, or "銘柄<code>".
func StockName(code string) string {
	if name, ok := sampleNames[code]; ok {
		return name
	}
	return "銘柄" + code
}
