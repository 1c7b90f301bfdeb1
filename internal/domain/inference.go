package domain

import (
	"errors"
	"fmt"
)

// Match is one candidate catalog product returned by the inference service
type Match struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`     // 0-100
	RowIndex     int     `json:"row_index"` // source catalog row
	Generic      *string `json:"generic,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	Form         *string `json:"form,omitempty"`
	AliasName    *string `json:"alias_name,omitempty"`
	MainUses     *string `json:"main_uses,omitempty"`
}

// InferenceResponse is the typed result of one inference request.
// Optional fields are nil when the server did not compute them.
type InferenceResponse struct {
	OCRText      string   `json:"ocr_text"`
	TopK         []Match  `json:"top_k"`
	MismatchFlag bool     `json:"mismatch_flag"`
	Flags        []string `json:"flags"`
	MainUses     *string  `json:"main_uses,omitempty"`
	EditDistance *int     `json:"edit_distance,omitempty"`
	VisionScore  *float64 `json:"vision_score,omitempty"`
}

// Validate checks the response invariants: scores within range and in
// non-increasing rank order, and an empty candidate list flagged as a mismatch.
func (r *InferenceResponse) Validate() error {
	if r == nil {
		return errors.New("empty response")
	}
	if len(r.TopK) == 0 && !r.MismatchFlag {
		return errors.New("mismatch_flag must be set when top_k is empty")
	}
	for i, m := range r.TopK {
		if m.Name == "" {
			return fmt.Errorf("top_k[%d]: name is required", i)
		}
		if m.Score < 0 || m.Score > 100 {
			return fmt.Errorf("top_k[%d]: score %g outside 0-100", i, m.Score)
		}
		if i > 0 && m.Score > r.TopK[i-1].Score {
			return fmt.Errorf("top_k[%d]: score %g exceeds previous rank %g", i, m.Score, r.TopK[i-1].Score)
		}
	}
	if r.EditDistance != nil && *r.EditDistance < 0 {
		return fmt.Errorf("edit_distance %d is negative", *r.EditDistance)
	}
	if r.VisionScore != nil && (*r.VisionScore < 0 || *r.VisionScore > 100) {
		return fmt.Errorf("vision_score %g outside 0-100", *r.VisionScore)
	}
	return nil
}

// Best returns the top-ranked match, if any
func (r *InferenceResponse) Best() (Match, bool) {
	if r == nil || len(r.TopK) == 0 {
		return Match{}, false
	}
	return r.TopK[0], true
}
