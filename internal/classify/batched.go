package classify

import (
	"context"
	"fmt"

	"github.com/kdimtricp/speechguard/internal/models"
)

// Batched splits large inputs into sequential chunks.
type Batched struct {
	inner Classifier
	size  int
}

func NewBatched(inner Classifier, size int) *Batched {
	if size <= 0 {
		size = 32
	}
	return &Batched{inner: inner, size: size}
}

func (b *Batched) Classify(ctx context.Context, texts []string) ([]models.Prediction, error) {
	out := make([]models.Prediction, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		chunk := texts[start:end]

		preds, err := b.inner.Classify(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if len(preds) != len(chunk) {
			return nil, fmt.Errorf("classifier returned %d predictions for %d texts", len(preds), len(chunk))
		}
		out = append(out, preds...)
	}
	return out, nil
}

// Close releases the wrapped classifier when it holds resources.
func (b *Batched) Close() error {
	if closer, ok := b.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
