package analysis

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/usecase/document"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	chartKind = "chart"
	lineChart = "line"
)

type Result struct {
	Chart    entity.ChartSpec
	Insights string
}

// Analyzer turns a CSV file into a line chart over the first categorical and
// the first numeric column of the header row.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze reads the CSV at path. An empty title becomes "Analysis of <file>".
func (a *Analyzer) Analyze(ctx context.Context, path, title string) (*Result, error) {
	doc, err := document.ExtractCSVFile(path)
	if err != nil {
		ctxzap.Warn(ctx, "read csv failed", zap.String("path", path), zap.Error(err))
		return nil, entity.ErrCSVUnreadable
	}
	if len(doc.Rows) == 0 || len(doc.Columns) == 0 {
		return nil, entity.ErrCSVUnreadable
	}

	xKey, yKey := pickAxes(doc.Columns, doc.Rows[0])

	data := make([]map[string]any, 0, len(doc.Rows))
	var total float64
	for _, row := range doc.Rows {
		point := make(map[string]any, len(row))
		for k, v := range row {
			point[k] = v
		}
		y := number(row[yKey])
		point[yKey] = y
		total += y
		data = append(data, point)
	}

	if title == "" {
		title = "Analysis of " + filepath.Base(path)
	}

	return &Result{
		Chart: entity.ChartSpec{
			Type:      chartKind,
			ChartType: lineChart,
			Title:     title,
			XKey:      xKey,
			YKey:      yKey,
			Data:      data,
		},
		Insights: fmt.Sprintf("Detected x=%q, y=%q. Rows=%d. Sum=%.2f, Avg=%.2f.",
			xKey, yKey, len(data), total, total/float64(len(data))),
	}, nil
}

func pickAxes(columns []string, sample map[string]string) (x, y string) {
	for _, col := range columns {
		if _, ok := parseNumber(sample[col]); ok {
			if y == "" {
				y = col
			}
		} else if x == "" {
			x = col
		}
	}

	if x == "" {
		x = columns[0]
	}
	if y == "" {
		y = columns[0]
		for _, col := range columns {
			if col != x {
				y = col
				break
			}
		}
	}
	return x, y
}

// parseNumber accepts finite numbers only. NaN and Inf do not encode as JSON.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func number(s string) float64 {
	v, _ := parseNumber(s)
	return v
}
