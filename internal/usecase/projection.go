package usecase

import (
	"fmt"
	"strings"

	"github.com/aushadhi/client/internal/domain"
)

const (
	StatusPrompt    = "Drop a medicine box photo"
	StatusAnalyzing = "Analyzing…"
	StatusMismatch  = "Potential mismatch"
	StatusValid     = "Likely valid"
	ErrorPrefix     = "Error: "

	noOCRText = "(none)"
)

// DisplayModel is what a presentation layer renders for a State
type DisplayModel struct {
	Phase        string         `json:"phase"`
	Status       string         `json:"status"`
	OCRText      string         `json:"ocr_text,omitempty"`
	Flags        []string       `json:"flags,omitempty"`
	BestMatch    *domain.Match  `json:"best_match,omitempty"`
	OtherMatches []domain.Match `json:"other_matches,omitempty"`
	MainUses     *string        `json:"main_uses,omitempty"`
	EditDistance *int           `json:"edit_distance,omitempty"`
	VisionScore  *float64       `json:"vision_score,omitempty"`
	PreviewRef   string         `json:"preview_ref,omitempty"`
	Filename     string         `json:"filename,omitempty"`
}

// Project derives the display model from a state. It has no side effects and
// never reorders candidates.
func Project(s State) DisplayModel {
	d := DisplayModel{
		Phase:      s.Phase.String(),
		PreviewRef: s.PreviewRef,
		Filename:   s.Filename,
	}

	switch s.Phase {
	case PhaseAnalyzing:
		d.Status = StatusAnalyzing
		return d
	case PhaseFailed:
		d.Status = ErrorPrefix + s.Err
		return d
	case PhaseResolved:
		if s.Response != nil {
			break
		}
		fallthrough
	default:
		d.Status = StatusPrompt
		return d
	}

	resp := s.Response
	if resp.MismatchFlag {
		d.Status = StatusMismatch
	} else {
		d.Status = StatusValid
	}

	d.OCRText = resp.OCRText
	if d.OCRText == "" {
		d.OCRText = noOCRText
	}
	d.Flags = append([]string{}, resp.Flags...)
	d.EditDistance = resp.EditDistance
	d.VisionScore = resp.VisionScore
	d.MainUses = resp.MainUses

	if best, ok := resp.Best(); ok {
		d.BestMatch = &best
		d.OtherMatches = append([]domain.Match{}, resp.TopK[1:]...)
		if d.MainUses == nil {
			d.MainUses = best.MainUses
		}
	}
	return d
}

// Matches returns the best match followed by the others, in rank order
func (d DisplayModel) Matches() []domain.Match {
	if d.BestMatch == nil {
		return nil
	}
	return append([]domain.Match{*d.BestMatch}, d.OtherMatches...)
}

// FormatMatch renders a candidate as a single result-list line
func FormatMatch(m domain.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %.1f%%", m.Name, m.Score)
	if m.Generic != nil && *m.Generic != "" {
		b.WriteString(" — " + *m.Generic)
	}
	if m.Manufacturer != nil && *m.Manufacturer != "" {
		b.WriteString(" — " + *m.Manufacturer)
	}
	return b.String()
}
