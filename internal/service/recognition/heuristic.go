package recognition

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/seu-repo/wasteledger/internal/domain"
)

const HeuristicProviderName = "heuristic"

var DefaultHeuristicCandidates = []float64{0.5, 1, 2, 5, 10}

// HeuristicProvider is the last link of the chain. It never calls out and
// always answers, choosing a candidate from the image digest so the same
// image yields the same estimate. Readings are flagged Estimated.
type HeuristicProvider struct {
	candidates []float64
}

func NewHeuristicProvider(candidates []float64) *HeuristicProvider {
	var usable []float64
	for _, c := range candidates {
		if c > 0 {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		usable = DefaultHeuristicCandidates
	}
	return &HeuristicProvider{candidates: usable}
}

func (h *HeuristicProvider) Name() string { return HeuristicProviderName }

func (h *HeuristicProvider) Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, err
	}

	digest, err := hex.DecodeString(img.SHA256)
	if err != nil || len(digest) < 8 {
		sum := sha256.Sum256([]byte(img.Base64))
		digest = sum[:]
	}
	idx := binary.BigEndian.Uint64(digest[:8]) % uint64(len(h.candidates))

	return domain.Reading{
		Weight:    h.candidates[idx],
		Provider:  HeuristicProviderName,
		Estimated: true,
	}, nil
}
