package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"llm-trade-verifier/internal/analytics"
	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/export"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/models"
)

// recordsQuery is the query string accepted by /records and /export.csv.
type recordsQuery struct {
	Type      string   `form:"type" binding:"omitempty,oneof=all fixed selection"`
	ModelID   string   `form:"model_id"`
	StartDate string   `form:"start_date"`
	EndDate   string   `form:"end_date"`
	MinReturn *float64 `form:"min_return"`
	MaxReturn *float64 `form:"max_return"`
	SortBy    string   `form:"sort_by"`
	SortOrder string   `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Status    string   `form:"status" binding:"omitempty,oneof=PENDING SETTLED"`
}

func (q recordsQuery) spec() (analytics.FilterSpec, error) {
	start, err := analytics.ParseBound(q.StartDate, false)
	if err != nil {
		return analytics.FilterSpec{}, err
	}
	end, err := analytics.ParseBound(q.EndDate, true)
	if err != nil {
		return analytics.FilterSpec{}, err
	}
	return analytics.FilterSpec{
		DataType:  analytics.DataType(q.Type),
		ModelID:   q.ModelID,
		StartDate: start,
		EndDate:   end,
		MinReturn: q.MinReturn,
		MaxReturn: q.MaxReturn,
		SortBy:    q.SortBy,
		SortOrder: analytics.SortOrder(q.SortOrder),
		Status:    models.SettlementStatus(q.Status),
	}, nil
}

func bindFilter(c *gin.Context) (analytics.FilterSpec, bool) {
	var q recordsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return analytics.FilterSpec{}, false
	}
	spec, err := q.spec()
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return analytics.FilterSpec{}, false
	}
	return spec, true
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// fail maps an engine error onto a response. Validation failures are the
// caller's fault; anything else is reported as a server error.
func (s *Server) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, errors.ErrInputValidation) {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	logger := logging.FromContext(c.Request.Context())
	logger.Error().Err(err).Str("endpoint", op).Msg("Request failed")
	sendError(c, http.StatusInternalServerError, "failed to compute "+op)
}

// getSummary handles GET /api/v1/summary
func (s *Server) getSummary(c *gin.Context) {
	summary, err := s.engine.SummaryStats(c.Request.Context())
	if err != nil {
		s.fail(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// getRanking handles GET /api/v1/ranking
func (s *Server) getRanking(c *gin.Context) {
	ranking, err := s.engine.Ranking(c.Request.Context())
	if err != nil {
		s.fail(c, "ranking", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ranking})
}

// getChart handles GET /api/v1/chart
func (s *Server) getChart(c *gin.Context) {
	chart, err := s.engine.ChartSummary(c.Request.Context())
	if err != nil {
		s.fail(c, "chart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": chart})
}

// getRecords handles GET /api/v1/records
func (s *Server) getRecords(c *gin.Context) {
	spec, ok := bindFilter(c)
	if !ok {
		return
	}
	view, err := s.engine.FilterRecords(c.Request.Context(), spec)
	if err != nil {
		s.fail(c, "records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// exportCSV handles GET /api/v1/export.csv
func (s *Server) exportCSV(c *gin.Context) {
	spec, ok := bindFilter(c)
	if !ok {
		return
	}
	view, err := s.engine.FilterRecords(c.Request.Context(), spec)
	if err != nil {
		s.fail(c, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteType(&buf, view, spec.DataType); err != nil {
		s.fail(c, "export", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="trade_records.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// getModels handles GET /api/v1/models
func (s *Server) getModels(c *gin.Context) {
	if s.models == nil {
		c.JSON(http.StatusOK, gin.H{"data": []models.AIModel{}})
		return
	}
	list, err := s.models.GetModels(c.Request.Context())
	if err != nil {
		s.fail(c, "models", err)
		return
	}
	if list == nil {
		list = []models.AIModel{}
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}
