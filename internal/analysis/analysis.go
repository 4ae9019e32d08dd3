// Package analysis reviews an uploaded business spreadsheet with the oracle
// and answers follow-up questions about it.
package analysis

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/oracle"
	"github.com/erazemk/nabava/internal/store"
)

// SampleRows is how many records of an upload are shown to the oracle.
const SampleRows = 15

// NoDataAnswer is returned by Ask before any data has been analyzed.
const NoDataAnswer = "Upload a data file first so there is something to reason about."

// Report is the outcome of analyzing one upload.
type Report struct {
	Rows      int    `json:"rows"`
	RawData   string `json:"raw_data"`
	Analysis  string `json:"analysis"`
	Decisions string `json:"decisions"`
}

// Analyzer runs the analysis and decision prompts and keeps the sampled
// data in the settings table for Ask.
type Analyzer struct {
	db     *sql.DB
	oracle oracle.Oracle
	log    *logger.Logger
}

// New creates an analyzer.
func New(db *sql.DB, o oracle.Oracle, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{db: db, oracle: o, log: log}
}

// Analyze samples the CSV in r, finds its main problems and proposes
// decisions.
func (a *Analyzer) Analyze(ctx context.Context, r io.Reader) (*Report, error) {
	sample, rows, err := Sample(r, SampleRows)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "reading data file")
	}
	if rows == 0 {
		return nil, apperr.New(apperr.CodeValidation, "data file has no rows")
	}

	if err := store.SetSetting(ctx, a.db, store.SettingAnalysisContext, sample); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "saving data context")
	}

	analysis, err := a.complete(ctx, "analysis", fmt.Sprintf(
		"Analyze this MSME data: %s. Find the 3 main problems with deep reasoning. Return ONLY JSON.", sample))
	if err != nil {
		return nil, err
	}
	decisions, err := a.complete(ctx, "decisions", fmt.Sprintf(
		"Based on: %s, give 2 business decisions with step-by-step logic. Return ONLY JSON.", analysis))
	if err != nil {
		return nil, err
	}

	a.log.Info(a.log.WithField(ctx, "rows", rows), "data analyzed")
	return &Report{Rows: rows, RawData: sample, Analysis: analysis, Decisions: decisions}, nil
}

// Ask answers question using only the last analyzed data.
func (a *Analyzer) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.New(apperr.CodeValidation, "question is required")
	}

	data, ok, err := store.GetSetting(ctx, a.db, store.SettingAnalysisContext)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "loading data context")
	}
	if !ok || data == "" {
		return NoDataAnswer, nil
	}

	return a.complete(ctx, "ask", fmt.Sprintf(
		"Context data: %s\nQuestion: %s\nAnswer with deep reasoning based ONLY on the data.", data, question))
}

func (a *Analyzer) complete(ctx context.Context, purpose, prompt string) (string, error) {
	if a.oracle == nil {
		return "", apperr.New(apperr.CodeDependency, "analysis unavailable")
	}
	out, err := a.oracle.Complete(ctx, oracle.Request{Prompt: prompt, Purpose: purpose})
	if err != nil {
		return "", apperr.Wrap(apperr.CodeDependency, err, purpose+" failed")
	}
	return oracle.StripFences(out), nil
}

// Sample reads up to limit CSV records and renders them as a JSON array of
// objects keyed by header. Numeric cells become JSON numbers.
func Sample(r io.Reader, limit int) (string, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return "[]", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := make([]map[string]any, 0, limit)
	for len(records) < limit {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, err
		}
		rec := make(map[string]any, len(header))
		for i, h := range header {
			if i >= len(fields) {
				rec[h] = nil
				continue
			}
			rec[h] = cell(fields[i])
		}
		records = append(records, rec)
	}

	out, err := json.Marshal(records)
	if err != nil {
		return "", 0, err
	}
	return string(out), len(records), nil
}

func cell(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		// JSON has no NaN or Inf; missing values export as null.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	return v
}
