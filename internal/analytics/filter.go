package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/pkg/utils"
)

// DataType selects which collections a filtered view covers.
type DataType string

const (
	DataAll       DataType = "all"
	DataFixed     DataType = "fixed"
	DataSelection DataType = "selection"
)

// SortOrder is the direction of a filtered view's sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultSortField is used when FilterSpec.SortBy is empty.
const DefaultSortField = "created_at"

// FilterSpec describes a filtered, sorted view over the record collections.
// Nil bounds are not applied. All bounds are inclusive.
type FilterSpec struct {
	DataType  DataType                `json:"data_type" validate:"omitempty,oneof=all fixed selection"`
	ModelID   string                  `json:"model_id,omitempty"`
	StartDate *time.Time              `json:"start_date,omitempty"`
	EndDate   *time.Time              `json:"end_date,omitempty"`
	MinReturn *float64                `json:"min_return,omitempty"`
	MaxReturn *float64                `json:"max_return,omitempty"`
	SortBy    string                  `json:"sort_by" validate:"omitempty,max=64"`
	SortOrder SortOrder               `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	Status    models.SettlementStatus `json:"status,omitempty" validate:"omitempty,oneof=PENDING SETTLED"`
}

var validate = validator.New()

// WithDefaults fills in the data type, sort field and sort order when unset.
func (f FilterSpec) WithDefaults() FilterSpec {
	if f.DataType == "" {
		f.DataType = DataAll
	}
	if f.SortBy == "" {
		f.SortBy = DefaultSortField
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	return f
}

// Validate checks enum fields and bound ordering.
func (f FilterSpec) Validate() error {
	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Field(), fe.Value(), fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param()))
		}
		return errors.Wrap(err, "validating filter")
	}
	if f.MinReturn != nil && !finite(*f.MinReturn) {
		return errors.NewValidationError("MinReturn", *f.MinReturn, "must be finite")
	}
	if f.MaxReturn != nil && !finite(*f.MaxReturn) {
		return errors.NewValidationError("MaxReturn", *f.MaxReturn, "must be finite")
	}
	if f.MinReturn != nil && f.MaxReturn != nil && *f.MinReturn > *f.MaxReturn {
		return errors.NewValidationError("MinReturn", *f.MinReturn, "greater than max_return")
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return errors.NewValidationError("StartDate", *f.StartDate, "after end_date")
	}
	return nil
}

// FixedRow is a fixed trade with its resolved model label.
type FixedRow struct {
	models.FixedTrade
	ModelDisplayName string `json:"model_display_name"`
}

// SelectionRow is a selection trade with its resolved model label.
type SelectionRow struct {
	models.SelectionTrade
	ModelDisplayName string `json:"model_display_name"`
}

// FilteredView is the result of FilterRecords. Both slices are non-nil.
type FilteredView struct {
	FixedRecords     []FixedRow     `json:"fixed_records"`
	SelectionRecords []SelectionRow `json:"selection_records"`
	TotalCount       int            `json:"total_count"`
}

func emptyView() FilteredView {
	return FilteredView{FixedRecords: []FixedRow{}, SelectionRecords: []SelectionRow{}}
}

// FilterRecords applies spec to ds. An invalid spec yields an empty view and an error.
func FilterRecords(ds Dataset, spec FilterSpec) (FilteredView, error) {
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return emptyView(), err
	}

	view := emptyView()
	if spec.DataType != DataSelection {
		for _, t := range ds.Fixed {
			if spec.matches(models.FixedRecord(&t)) {
				view.FixedRecords = append(view.FixedRecords, FixedRow{
					FixedTrade:       t,
					ModelDisplayName: ds.Registry.DisplayName(t.ModelID),
				})
			}
		}
		sortRows(view.FixedRecords, fixedSortKeys, spec)
	}
	if spec.DataType != DataFixed {
		for _, t := range ds.Selection {
			if spec.matches(models.SelectionRecord(&t)) {
				view.SelectionRecords = append(view.SelectionRecords, SelectionRow{
					SelectionTrade:   t,
					ModelDisplayName: ds.Registry.DisplayName(t.ModelID),
				})
			}
		}
		sortRows(view.SelectionRecords, selectionSortKeys, spec)
	}

	view.TotalCount = len(view.FixedRecords) + len(view.SelectionRecords)
	return view, nil
}

func (f FilterSpec) matches(r models.TradeRecord) bool {
	if f.ModelID != "" && r.ModelID() != f.ModelID {
		return false
	}
	exec := r.ExecutionDate()
	if f.StartDate != nil && exec.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && exec.After(*f.EndDate) {
		return false
	}
	rate := r.ReturnRate()
	if f.MinReturn != nil && rate < *f.MinReturn {
		return false
	}
	if f.MaxReturn != nil && rate > *f.MaxReturn {
		return false
	}
	if f.Status != "" && r.Status() != f.Status {
		return false
	}
	return true
}

// sortRows sorts in place. A field the row kind does not have leaves the order unchanged.
func sortRows[R any](rows []R, keys map[string]func(a, b R) int, spec FilterSpec) {
	compare, ok := keys[spec.SortBy]
	if !ok {
		return
	}
	if spec.SortOrder == SortDesc {
		slices.SortStableFunc(rows, func(a, b R) int { return compare(b, a) })
		return
	}
	slices.SortStableFunc(rows, compare)
}

// SortFields returns the sortable field names for a data type.
func SortFields(kind models.TradeKind) []string {
	var keys []string
	if kind == models.KindFixed {
		for k := range fixedSortKeys {
			keys = append(keys, k)
		}
	} else {
		for k := range selectionSortKeys {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func by[R any, K cmp.Ordered](key func(R) K) func(a, b R) int {
	return func(a, b R) int { return cmp.Compare(key(a), key(b)) }
}

func byTime[R any](key func(R) time.Time) func(a, b R) int {
	return func(a, b R) int { return key(a).Compare(key(b)) }
}

// byOptional orders missing values first.
func byOptional[R any](key func(R) *float64) func(a, b R) int {
	return by(func(r R) float64 {
		if v := key(r); v != nil {
			return *v
		}
		return math.Inf(-1)
	})
}

var fixedSortKeys = map[string]func(a, b FixedRow) int{
	"id":                  by(func(r FixedRow) int64 { return r.ID }),
	"execution_date":      byTime(func(r FixedRow) time.Time { return r.ExecutionDate }),
	"model_id":            by(func(r FixedRow) string { return r.ModelID }),
	"model_display_name":  by(func(r FixedRow) string { return r.ModelDisplayName }),
	"stock_code":          by(func(r FixedRow) string { return r.StockCode }),
	"buy_date":            byTime(func(r FixedRow) time.Time { return r.BuyDate }),
	"buy_price":           by(func(r FixedRow) float64 { return r.BuyPrice }),
	"sell_date":           byTime(func(r FixedRow) time.Time { return r.SellDate }),
	"sell_price":          by(func(r FixedRow) float64 { return r.SellPrice }),
	"predicted_price":     by(func(r FixedRow) float64 { return r.PredictedPrice }),
	"predicted_high":      byOptional(func(r FixedRow) *float64 { return r.PredictedHigh }),
	"predicted_low":       byOptional(func(r FixedRow) *float64 { return r.PredictedLow }),
	"profit_loss":         by(func(r FixedRow) float64 { return r.ProfitLoss }),
	"return_rate":         by(func(r FixedRow) float64 { return r.ReturnRate }),
	"prediction_accuracy": by(func(r FixedRow) float64 { return r.PredictionAccuracy }),
	"period_days":         by(func(r FixedRow) int { return r.PeriodDays }),
	"notes":               by(func(r FixedRow) string { return r.Notes }),
	"status":              by(func(r FixedRow) models.SettlementStatus { return r.Status }),
	"created_at":          byTime(func(r FixedRow) time.Time { return r.CreatedAt }),
}

var selectionSortKeys = map[string]func(a, b SelectionRow) int{
	"id":                 by(func(r SelectionRow) int64 { return r.ID }),
	"execution_date":     byTime(func(r SelectionRow) time.Time { return r.ExecutionDate }),
	"analysis_period":    by(func(r SelectionRow) int { return r.AnalysisPeriod.Days() }),
	"model_id":           by(func(r SelectionRow) string { return r.ModelID }),
	"model_display_name": by(func(r SelectionRow) string { return r.ModelDisplayName }),
	"stock_code":         by(func(r SelectionRow) string { return r.StockCode }),
	"selection_reason":   by(func(r SelectionRow) string { return r.SelectionReason }),
	"buy_date":           byTime(func(r SelectionRow) time.Time { return r.BuyDate }),
	"buy_price":          by(func(r SelectionRow) float64 { return r.BuyPrice }),
	"sell_date":          byTime(func(r SelectionRow) time.Time { return r.SellDate }),
	"sell_price":         by(func(r SelectionRow) float64 { return r.SellPrice }),
	"profit_loss":        by(func(r SelectionRow) float64 { return r.ProfitLoss }),
	"return_rate":        by(func(r SelectionRow) float64 { return r.ReturnRate }),
	"period_days":        by(func(r SelectionRow) int { return r.PeriodDays }),
	"notes":              by(func(r SelectionRow) string { return r.Notes }),
	"status":             by(func(r SelectionRow) models.SettlementStatus { return r.Status }),
	"created_at":         byTime(func(r SelectionRow) time.Time { return r.CreatedAt }),
}

// DateLayout is the calendar-date form accepted for filter bounds.
const DateLayout = "2006-01-02"

// ParseBound parses a filter date bound given as RFC 3339 or YYYY-MM-DD.
// A date-only bound is a Tokyo calendar day, and as an upper bound it covers
// the whole day. The result is in UTC. Empty input yields nil.
func ParseBound(s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, utils.TokyoLocation)
	if err != nil {
		return nil, errors.NewValidationError("date", s, "expected YYYY-MM-DD or RFC 3339")
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	t = t.UTC()
	return &t, nil
}
