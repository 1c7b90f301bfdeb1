package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aushadhi/client/internal/domain"
)

// wireMatch mirrors a match on the wire. Pointers distinguish absent from zero.
type wireMatch struct {
	Name         *string  `json:"name"`
	Score        *float64 `json:"score"`
	RowIndex     *int     `json:"row_index"`
	Generic      *string  `json:"generic"`
	Manufacturer *string  `json:"manufacturer"`
	Form         *string  `json:"form"`
	AliasName    *string  `json:"alias_name"`
	MainUses     *string  `json:"main_uses"`
}

type wireResponse struct {
	OCRText      *string      `json:"ocr_text"`
	TopK         *[]wireMatch `json:"top_k"`
	MismatchFlag *bool        `json:"mismatch_flag"`
	Flags        *[]string    `json:"flags"`
	MainUses     *string      `json:"main_uses"`
	EditDistance *int         `json:"edit_distance"`
	VisionScore  *float64     `json:"vision_score"`
}

// decodeResponse parses and validates a response body. It never returns a
// partially populated response.
func decodeResponse(raw []byte) (*domain.InferenceResponse, error) {
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch {
	case wire.OCRText == nil:
		return nil, errors.New("ocr_text is required")
	case wire.TopK == nil:
		return nil, errors.New("top_k is required")
	case wire.MismatchFlag == nil:
		return nil, errors.New("mismatch_flag is required")
	case wire.Flags == nil:
		return nil, errors.New("flags is required")
	}

	matches := make([]domain.Match, 0, len(*wire.TopK))
	for i, wm := range *wire.TopK {
		m, err := mapMatch(wm)
		if err != nil {
			return nil, fmt.Errorf("top_k[%d]: %w", i, err)
		}
		matches = append(matches, m)
	}

	resp := &domain.InferenceResponse{
		OCRText:      *wire.OCRText,
		TopK:         matches,
		MismatchFlag: *wire.MismatchFlag,
		Flags:        append([]string{}, (*wire.Flags)...),
		MainUses:     wire.MainUses,
		EditDistance: wire.EditDistance,
		VisionScore:  wire.VisionScore,
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

func mapMatch(wm wireMatch) (domain.Match, error) {
	switch {
	case wm.Name == nil:
		return domain.Match{}, errors.New("name is required")
	case wm.Score == nil:
		return domain.Match{}, errors.New("score is required")
	case wm.RowIndex == nil:
		return domain.Match{}, errors.New("row_index is required")
	}
	return domain.Match{
		Name:         *wm.Name,
		Score:        *wm.Score,
		RowIndex:     *wm.RowIndex,
		Generic:      wm.Generic,
		Manufacturer: wm.Manufacturer,
		Form:         wm.Form,
		AliasName:    wm.AliasName,
		MainUses:     wm.MainUses,
	}, nil
}

// serverMessage extracts a diagnostic from an error body. It understands
// FastAPI's {"detail": "..."} and {"detail": [{"msg": "..."}]} as well as
// {"error": "..."} and {"message": "..."}.
func serverMessage(raw []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if s := strings.TrimSpace(payload.Error); s != "" {
		return s
	}
	return strings.TrimSpace(payload.Message)
}
