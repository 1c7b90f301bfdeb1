package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aushadhi/client/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestProject_Phases(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"idle", State{}, StatusPrompt},
		{"analyzing", State{SessionID: 1, Phase: PhaseAnalyzing}, StatusAnalyzing},
		{"failed", State{SessionID: 1, Phase: PhaseFailed, Err: "Request failed with status code 500"}, "Error: Request failed with status code 500"},
		{"resolved without response", State{SessionID: 1, Phase: PhaseResolved}, StatusPrompt},
		{
			"resolved valid",
			State{SessionID: 1, Phase: PhaseResolved, Response: &domain.InferenceResponse{
				TopK: []domain.Match{{Name: "A", Score: 99, RowIndex: 0}},
			}},
			StatusValid,
		},
		{
			"resolved mismatch",
			State{SessionID: 1, Phase: PhaseResolved, Response: &domain.InferenceResponse{
				TopK:         []domain.Match{{Name: "A", Score: 40, RowIndex: 0}},
				MismatchFlag: true,
			}},
			StatusMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.state).Status)
		})
	}
}

func TestProject_LikelyValid(t *testing.T) {
	state := State{
		SessionID:  4,
		Phase:      PhaseResolved,
		PreviewRef: "ref-4",
		Response: &domain.InferenceResponse{
			OCRText: "PARACETAMOL 500MG",
			TopK: []domain.Match{
				{Name: "Paracetamol", Score: 96.2, RowIndex: 3, MainUses: strPtr("fever")},
				{Name: "Paracip", Score: 81, RowIndex: 9},
				{Name: "Pacimol", Score: 81, RowIndex: 2},
			},
			Flags: []string{},
		},
	}

	view := Project(state)

	assert.Equal(t, StatusValid, view.Status)
	assert.Equal(t, "resolved", view.Phase)
	assert.Equal(t, "PARACETAMOL 500MG", view.OCRText)
	assert.Equal(t, "ref-4", view.PreviewRef)
	require.NotNil(t, view.BestMatch)
	assert.Equal(t, "Paracetamol", view.BestMatch.Name)
	require.Len(t, view.OtherMatches, 2)
	// ties keep server order
	assert.Equal(t, "Paracip", view.OtherMatches[0].Name)
	assert.Equal(t, "Pacimol", view.OtherMatches[1].Name)
	require.NotNil(t, view.MainUses)
	assert.Equal(t, "fever", *view.MainUses, "falls back to the best match's uses")
	assert.Len(t, view.Matches(), 3)
}

func TestProject_PotentialMismatch(t *testing.T) {
	state := State{
		SessionID: 2,
		Phase:     PhaseResolved,
		Response: &domain.InferenceResponse{
			OCRText:      "",
			TopK:         []domain.Match{},
			MismatchFlag: true,
			Flags:        []string{"low_ocr_confidence"},
		},
	}

	view := Project(state)

	assert.Equal(t, StatusMismatch, view.Status)
	assert.Nil(t, view.BestMatch)
	assert.Empty(t, view.OtherMatches)
	assert.Nil(t, view.Matches())
	assert.Equal(t, []string{"low_ocr_confidence"}, view.Flags)
	assert.Equal(t, "(none)", view.OCRText)
}

func TestProject_OptionalFields(t *testing.T) {
	distance := 0
	vision := 72.5
	state := State{Phase: PhaseResolved, SessionID: 1, Response: &domain.InferenceResponse{
		OCRText:      "x",
		TopK:         []domain.Match{{Name: "A", Score: 90, RowIndex: 1, MainUses: strPtr("pain")}},
		Flags:        []string{},
		MainUses:     strPtr("headache"),
		EditDistance: &distance,
		VisionScore:  &vision,
	}}

	view := Project(state)

	require.NotNil(t, view.EditDistance)
	assert.Equal(t, 0, *view.EditDistance, "computed zero is kept distinct from absent")
	require.NotNil(t, view.VisionScore)
	assert.Equal(t, 72.5, *view.VisionScore)
	assert.Equal(t, "headache", *view.MainUses)

	bare := Project(State{Phase: PhaseResolved, SessionID: 1, Response: &domain.InferenceResponse{
		TopK: []domain.Match{{Name: "A", Score: 90}},
	}})
	assert.Nil(t, bare.EditDistance)
	assert.Nil(t, bare.VisionScore)
	assert.Nil(t, bare.MainUses)
}

func TestProject_Deterministic(t *testing.T) {
	state := State{Phase: PhaseResolved, SessionID: 7, Response: &domain.InferenceResponse{
		OCRText: "DOLO 650",
		TopK: []domain.Match{
			{Name: "Dolo 650", Score: 94, RowIndex: 11},
			{Name: "Dolopar", Score: 70, RowIndex: 12},
		},
		Flags: []string{"suspicious_tweak"},
	}}

	first := Project(state)
	second := Project(state)

	assert.Equal(t, first, second)

	// mutating one projection must not leak into the state or the next projection
	first.OtherMatches[0].Name = "changed"
	first.Flags[0] = "changed"
	assert.Equal(t, second, Project(state))
}

func TestFormatMatch(t *testing.T) {
	tests := []struct {
		name  string
		match domain.Match
		want  string
	}{
		{"name and score", domain.Match{Name: "Paracetamol", Score: 96.24}, "Paracetamol — 96.2%"},
		{"with generic", domain.Match{Name: "Dolo", Score: 90, Generic: strPtr("650mg")}, "Dolo — 90.0% — 650mg"},
		{
			"with generic and manufacturer",
			domain.Match{Name: "Crocin", Score: 88.88, Generic: strPtr("500mg"), Manufacturer: strPtr("GSK")},
			"Crocin — 88.9% — 500mg — GSK",
		},
		{"empty optional strings skipped", domain.Match{Name: "X", Score: 1, Generic: strPtr(""), Manufacturer: strPtr("Cipla")}, "X — 1.0% — Cipla"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMatch(tt.match)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.HasSuffix(got, " "))
		})
	}
}
