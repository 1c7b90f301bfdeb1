package domain

import "fmt"

// OCRBackend selects the OCR engine on the inference service
type OCRBackend string

const (
	OCRBackendRoboflow OCRBackend = "roboflow"
	OCRBackendEasyOCR  OCRBackend = "easyocr"
)

const (
	DefaultTopK       = 5
	DefaultThreshold  = 85.0
	DefaultOCRBackend = OCRBackendRoboflow
)

// Valid reports whether b is a known backend
func (b OCRBackend) Valid() bool {
	return b == OCRBackendRoboflow || b == OCRBackendEasyOCR
}

// InferenceParams is the per-request parameter set. TopK and Threshold are
// optional on the wire; nil means "not supplied" and the server default applies.
type InferenceParams struct {
	TopK         *int
	Threshold    *float64
	OCRBackend   OCRBackend
	EnableVision bool
}

// DefaultParams returns the parameters the client sends when nothing is configured.
func DefaultParams() InferenceParams {
	topK := DefaultTopK
	threshold := DefaultThreshold
	return InferenceParams{
		TopK:       &topK,
		Threshold:  &threshold,
		OCRBackend: DefaultOCRBackend,
	}
}

// WithDefaults fills the fields the client always sends. Supplied values are never overridden.
func (p InferenceParams) WithDefaults() InferenceParams {
	if p.OCRBackend == "" {
		p.OCRBackend = DefaultOCRBackend
	}
	return p
}

// Validate checks the parameter ranges
func (p InferenceParams) Validate() error {
	if p.TopK != nil && *p.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidParams, *p.TopK)
	}
	if p.Threshold != nil && (*p.Threshold < 0 || *p.Threshold > 100) {
		return fmt.Errorf("%w: threshold must be within 0-100, got %g", ErrInvalidParams, *p.Threshold)
	}
	if p.OCRBackend != "" && !p.OCRBackend.Valid() {
		return fmt.Errorf("%w: unknown ocr_backend %q", ErrInvalidParams, p.OCRBackend)
	}
	return nil
}
