package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aushadhi/client/internal/domain"
	"github.com/aushadhi/client/internal/logging"
)

const (
	// EndpointPath is the fixed inference route on the backend
	EndpointPath = "/api/infer"

	// Multipart field names
	FieldFile         = "file"
	FieldTopK         = "top_k"
	FieldThreshold    = "threshold"
	FieldOCRBackend   = "ocr_backend"
	FieldEnableVision = "enable_vision"

	maxResponseBytes = 4 << 20
)

// Options tunes the transport. Zero values fall back to defaults.
type Options struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second
	RateBurst int
}

// Client submits normalized images to the inference service
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new inference API client
func NewClient(baseURL string, opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 4
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		logger:      logger.Named("inference"),
	}
}

// SetDebug enables per-request logging of response bodies
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Submit issues a single POST to the inference endpoint. It never retries.
// Every failure after parameter validation is a *domain.RequestError.
func (c *Client) Submit(ctx context.Context, img *domain.EncodedImage, filename string, params domain.InferenceParams) (*domain.InferenceResponse, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if img == nil || len(img.Data) == 0 {
		return nil, &domain.RequestError{Message: "no image to upload"}
	}

	requestID := uuid.NewString()
	opLogger := logging.WithOperation(c.logger, "inference.submit", requestID)

	body, contentType, err := buildRequestBody(img, filename, params)
	if err != nil {
		return nil, &domain.RequestError{Message: "failed to build request body", Err: err}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &domain.RequestError{Message: "Network Error: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointPath, body)
	if err != nil {
		return nil, &domain.RequestError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aushadhi-client/1.0")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		opLogger.Warn("inference transport failure", zap.Error(err))
		return nil, &domain.RequestError{Message: "Network Error: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.RequestError{StatusCode: resp.StatusCode, Message: "Network Error: " + err.Error(), Err: err}
	}

	opLogger.Debug("inference response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(raw)),
	)
	if c.debug {
		opLogger.Debug("inference response body", zap.ByteString("body", raw))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		opLogger.Warn("inference request rejected", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, &domain.RequestError{StatusCode: resp.StatusCode, Message: msg}
	}

	result, err := decodeResponse(raw)
	if err != nil {
		opLogger.Warn("malformed inference response", zap.Error(err))
		return nil, &domain.RequestError{
			StatusCode: resp.StatusCode,
			Message:    "Malformed inference response: " + err.Error(),
			Err:        err,
		}
	}

	return result, nil
}

// buildRequestBody writes the multipart form. Numbers are sent in decimal,
// the boolean as "true"/"false"; ocr_backend and enable_vision are always present.
func buildRequestBody(img *domain.EncodedImage, filename string, params domain.InferenceParams) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipart.FileContentDisposition(FieldFile, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}

	fields := make([][2]string, 0, 4)
	if params.TopK != nil {
		fields = append(fields, [2]string{FieldTopK, strconv.Itoa(*params.TopK)})
	}
	if params.Threshold != nil {
		fields = append(fields, [2]string{FieldThreshold, strconv.FormatFloat(*params.Threshold, 'f', -1, 64)})
	}
	fields = append(fields,
		[2]string{FieldOCRBackend, string(params.OCRBackend)},
		[2]string{FieldEnableVision, strconv.FormatBool(params.EnableVision)},
	)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
