package domain

import (
	"context"
	"time"
)

// ImageNormalizer shrinks and re-encodes a captured image before upload
type ImageNormalizer interface {
	Normalize(ctx context.Context, img ImageHandle, maxDimension int) (*EncodedImage, error)
}

// InferenceClient submits a normalized image to the remote inference service
type InferenceClient interface {
	Submit(ctx context.Context, img *EncodedImage, filename string, params InferenceParams) (*InferenceResponse, error)
}

// PreviewStore holds display-only preview blobs behind opaque refs,
// the way a browser hands out temporary object URLs
type PreviewStore interface {
	Create(ctx context.Context, data []byte, contentType string, ttl time.Duration) (string, error)
	Get(ctx context.Context, ref string) (*Preview, error)
	Revoke(ctx context.Context, ref string) error
}

// Preview is a stored preview blob
type Preview struct {
	Data        []byte
	ContentType string
}
