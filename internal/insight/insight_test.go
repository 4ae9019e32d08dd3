package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/db"
	"github.com/erazemk/nabava/internal/oracle"
	"github.com/erazemk/nabava/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRecord = `{"summary":"Customer ordered 20 crates","sentiment":"Positive","revenue":4500,"leads":["Ravi"],"urgent_tasks":["Ship by Friday"]}`

// scripted answers gate and extract calls from fixed replies.
func scripted(gate string, gateErr error, extract string, extractErr error) oracle.Oracle {
	return oracle.Func(func(_ context.Context, req oracle.Request) (string, error) {
		switch req.Purpose {
		case "gate":
			return gate, gateErr
		case "extract":
			return extract, extractErr
		}
		return "", errors.New("unexpected purpose " + req.Purpose)
	})
}

func TestProcessStoresRelevantChat(t *testing.T) {
	database := db.NewTestDB(t)
	p := New(database, scripted("YES", nil, "```json\n"+validRecord+"\n```", nil), nil, nil)

	res, err := p.Process(context.Background(), "Ravi: need 20 crates by Friday", SourceWebhook)
	require.NoError(t, err)
	assert.True(t, res.Relevant)
	require.NotNil(t, res.Analysis)
	assert.Equal(t, "Positive", res.Analysis.Sentiment)
	assert.Equal(t, []string{"Ship by Friday"}, res.Analysis.UrgentTasks)

	require.NotNil(t, res.Insight)
	assert.Equal(t, SourceWebhook, res.Insight.Source)
	assert.Equal(t, 4500.0, res.Insight.Revenue)
	assert.JSONEq(t, validRecord, res.Insight.ProcessedJSON)

	list, err := p.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProcessDropsNoise(t *testing.T) {
	database := db.NewTestDB(t)
	p := New(database, scripted(" no.", nil, "", errors.New("must not be called")), nil, nil)

	res, err := p.Process(context.Background(), "good morning!! 🌞", "")
	require.NoError(t, err)
	assert.False(t, res.Relevant)
	assert.Nil(t, res.Insight)

	list, _ := store.ListInsights(context.Background(), database, 10)
	assert.Empty(t, list)
}

func TestGateFailsOpen(t *testing.T) {
	database := db.NewTestDB(t)
	p := New(database, scripted("", errors.New("timeout"), validRecord, nil), nil, nil)

	res, err := p.Process(context.Background(), "payment of 4500 received", "")
	require.NoError(t, err)
	assert.True(t, res.Relevant)
	assert.NotNil(t, res.Insight)
}

func TestGateAnswers(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes, business", true},
		{"NO", false},
		{"No", false},
		{"maybe", true},
		{"Nothing to flag, YES", true},
	}
	for _, tt := range tests {
		p := New(nil, scripted(tt.answer, nil, "", nil), nil, nil)
		assert.Equal(t, tt.want, p.Gate(context.Background(), "text"), tt.answer)
	}
}

func TestExtractFailuresAreDependencyErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"oracle error", "", errors.New("503")},
		{"not json", "Here is your summary: all good", nil},
		{"bad sentiment", `{"summary":"x","sentiment":"Ecstatic","revenue":1}`, nil},
		{"missing summary", `{"sentiment":"Neutral","revenue":1}`, nil},
		{"negative revenue", `{"summary":"x","sentiment":"Neutral","revenue":-5}`, nil},
		{"revenue as text", `{"summary":"x","sentiment":"Neutral","revenue":"₹500"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := db.NewTestDB(t)
			p := New(database, scripted("YES", nil, tt.reply, tt.err), nil, nil)

			_, err := p.Process(context.Background(), "order chat", "")
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeDependency), "%v", err)

			list, _ := store.ListInsights(context.Background(), database, 10)
			assert.Empty(t, list)
		})
	}
}

func TestEmptyTextRejected(t *testing.T) {
	p := New(nil, nil, nil, nil)
	_, err := p.Process(context.Background(), "   ", "")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestSaveFailureStillReturnsAnalysis(t *testing.T) {
	database := db.NewTestDB(t)
	p := New(database, scripted("YES", nil, validRecord, nil), nil, nil)
	require.NoError(t, database.Close())

	res, err := p.Process(context.Background(), "order chat", "")
	require.NoError(t, err)
	assert.True(t, res.Relevant)
	assert.NotNil(t, res.Analysis)
	assert.Nil(t, res.Insight)
}

func TestParseAnalysisFillsEmptyLists(t *testing.T) {
	a, err := ParseAnalysis(`{"summary":"quiet day","sentiment":"Neutral","revenue":0}`)
	require.NoError(t, err)
	assert.NotNil(t, a.Leads)
	assert.NotNil(t, a.UrgentTasks)
}
