// Package prompt renders the weekly prediction prompt and optionally sends it
// to a language model.
package prompt

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/pkg/utils"
)

//go:embed weekly_prompt.md.tmpl
var weeklyTemplate string

const systemPrompt = "You are a Japanese equity analyst. Answer in Japanese and follow the requested output format exactly."

var weekdaysJA = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Data is the template input.
type Data struct {
	CurrentDate    string
	WeekStart      string
	WeekEnd        string
	FixedStockCode string
	FixedStockName string
}

// Generator renders and saves weekly prompts.
type Generator struct {
	outputDir string
	fixedCode string
	fixedName string
	tmpl      *template.Template
	logger    zerolog.Logger
}

// NewGenerator creates a generator writing to outputDir.
func NewGenerator(outputDir, fixedCode, fixedName string, logger zerolog.Logger) (*Generator, error) {
	tmpl, err := template.New("weekly").Parse(weeklyTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Generator{
		outputDir: outputDir,
		fixedCode: fixedCode,
		fixedName: fixedName,
		tmpl:      tmpl,
		logger:    logger,
	}, nil
}

func formatJA(t time.Time) string {
	return fmt.Sprintf("%d年%02d月%02d日(%s)", t.Year(), int(t.Month()), t.Day(), weekdaysJA[t.Weekday()])
}

// Render returns the prompt for the trading week after now.
func (g *Generator) Render(now time.Time) (string, error) {
	monday, friday := utils.NextWeek(now)
	data := Data{
		CurrentDate:    fmt.Sprintf("%d年%02d月%02d日", now.Year(), int(now.Month()), now.Day()),
		WeekStart:      formatJA(monday),
		WeekEnd:        formatJA(friday),
		FixedStockCode: g.fixedCode,
		FixedStockName: g.fixedName,
	}
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// FileName is the output name for a prompt generated on now.
func FileName(now time.Time) string {
	return "weekly_prompt_" + now.Format("20060102") + ".md"
}

// Generate renders the prompt and writes it to the output directory.
func (g *Generator) Generate(now time.Time) (string, string, error) {
	content, err := g.Render(now)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(g.outputDir, FileName(now))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write prompt: %w", err)
	}

	monday, friday := utils.NextWeek(now)
	g.logger.Info().
		Str("path", path).
		Time("week_start", monday).
		Time("week_end", friday).
		Msg("Weekly prompt generated")
	return path, content, nil
}

// Ask sends prompt to client and returns the reply.
func Ask(ctx context.Context, client Completer, prompt string) (string, error) {
	if client == nil {
		return "", errors.ErrLLMNotConfigured
	}
	reply, err := client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("empty reply from model")
	}
	return reply, nil
}

// SaveResponse stores reply where the importer looks for it:
// <responsesDir>/<yyyymmdd>/<file>.
func SaveResponse(responsesDir string, date time.Time, file, reply string) (string, error) {
	dir := filepath.Join(responsesDir, date.Format("20060102"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create response directory: %w", err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(reply), 0644); err != nil {
		return "", fmt.Errorf("failed to write response: %w", err)
	}
	return path, nil
}
