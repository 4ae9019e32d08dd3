// Package insight turns chat exports into structured business insights.
//
// Text first passes a relevance gate. Relevant text is summarized by the
// oracle into a fixed record that is validated and stored append-only.
package insight

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/metrics"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/oracle"
	"github.com/erazemk/nabava/internal/store"
	"github.com/erazemk/nabava/internal/validate"
)

// Sources recorded with an insight.
const (
	SourceAPI     = "api"
	SourceWebhook = "webhook"
	SourceWatcher = "watcher"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

const (
	gatePrompt = "You filter WhatsApp chats for a small business. " +
		"Answer YES if the text discusses orders, payments, customers, suppliers, stock or other business matters, " +
		"and NO if it is personal chatter or spam. Answer with one word."

	extractPrompt = "You analyze WhatsApp business chats. Return ONLY a JSON object with these keys: " +
		`"summary" (string), "sentiment" ("Positive", "Neutral" or "Negative"), ` +
		`"revenue" (number, estimated rupee value mentioned, 0 if none), ` +
		`"leads" (array of strings), "urgent_tasks" (array of strings).`
)

// Analysis is the typed record the extractor must return.
type Analysis struct {
	Summary     string   `json:"summary" validate:"required"`
	Sentiment   string   `json:"sentiment" validate:"required,oneof=Positive Neutral Negative"`
	Revenue     float64  `json:"revenue" validate:"gte=0"`
	Leads       []string `json:"leads"`
	UrgentTasks []string `json:"urgent_tasks"`
}

// Result reports what happened to one chat.
type Result struct {
	Relevant bool           `json:"relevant"`
	Insight  *model.Insight `json:"insight,omitempty"`
	Analysis *Analysis      `json:"analysis,omitempty"`
}

// Pipeline runs gate, extraction and persistence.
type Pipeline struct {
	db      *sql.DB
	oracle  oracle.Oracle
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates a pipeline. A nil oracle lets everything through the gate and
// fails extraction.
func New(db *sql.DB, o oracle.Oracle, m *metrics.Metrics, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{db: db, oracle: o, metrics: m, log: log}
}

// Process gates and analyzes text. Irrelevant text yields Relevant=false
// and nothing is stored. A failed save is logged and the analysis is still
// returned.
func (p *Pipeline) Process(ctx context.Context, text, source string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, apperr.New(apperr.CodeValidation, "text is required")
	}
	if source == "" {
		source = SourceAPI
	}
	ctx = p.log.WithField(ctx, "source", source)

	relevant := p.Gate(ctx, text)
	p.metrics.IncGate(relevant)
	if !relevant {
		p.log.Info(ctx, "chat rejected by gate")
		return Result{Relevant: false}, nil
	}

	analysis, err := p.Extract(ctx, text)
	if err != nil {
		return Result{}, err
	}

	processed, err := json.Marshal(analysis)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.CodeInternal, err, "encoding analysis")
	}

	res := Result{Relevant: true, Analysis: analysis}
	saved, err := store.CreateInsight(ctx, p.db, model.Insight{
		RawText:       text,
		ProcessedJSON: string(processed),
		Summary:       analysis.Summary,
		Sentiment:     analysis.Sentiment,
		Revenue:       analysis.Revenue,
		Source:        source,
	})
	if err != nil {
		p.log.Error(ctx, "saving insight", err)
		return res, nil
	}
	res.Insight = saved
	return res, nil
}

// Gate asks whether text is business-relevant. Any oracle failure, or an
// answer that is not clearly NO, counts as relevant.
func (p *Pipeline) Gate(ctx context.Context, text string) bool {
	if p.oracle == nil {
		return true
	}
	out, err := p.oracle.Complete(ctx, oracle.Request{
		System:  gatePrompt,
		Prompt:  text,
		Purpose: "gate",
	})
	if err != nil {
		p.log.Warn(ctx, "gate failed open", err)
		return true
	}
	words := strings.FieldsFunc(strings.ToUpper(out), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return len(words) == 0 || words[0] != "NO"
}

// Extract asks the oracle for an Analysis and validates it. Failures are
// reported as dependency errors.
func (p *Pipeline) Extract(ctx context.Context, text string) (*Analysis, error) {
	if p.oracle == nil {
		return nil, apperr.New(apperr.CodeDependency, "insight extraction unavailable")
	}
	out, err := p.oracle.Complete(ctx, oracle.Request{
		System:  extractPrompt,
		Prompt:  text,
		Purpose: "extract",
		JSON:    true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "insight extraction failed")
	}
	return ParseAnalysis(out)
}

// ParseAnalysis decodes and validates an extractor reply.
func ParseAnalysis(raw string) (*Analysis, error) {
	var a Analysis
	if err := json.Unmarshal([]byte(oracle.StripFences(raw)), &a); err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "extractor returned malformed JSON")
	}
	if err := validate.Struct(a); err != nil {
		details := any(nil)
		if e := apperr.As(err); e != nil {
			details = e.Details()
		}
		return nil, apperr.Wrap(apperr.CodeDependency, err, "extractor returned an invalid record").WithDetails(details)
	}
	if a.Leads == nil {
		a.Leads = []string{}
	}
	if a.UrgentTasks == nil {
		a.UrgentTasks = []string{}
	}
	return &a, nil
}

// List returns the most recent insights.
func (p *Pipeline) List(ctx context.Context, limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	insights, err := store.ListInsights(ctx, p.db, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "listing insights")
	}
	return insights, nil
}
