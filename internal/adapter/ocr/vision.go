package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/infrastructure/circuitbreaker"
)

const (
	VisionProviderName = "vision"

	DefaultVisionBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultVisionModel   = "gemini-1.5-flash"

	DefaultVisionPrompt = "This is a photo of a weighing scale. Read only the number shown on its digital display. " +
		"Ignore price, tare, unit price and any reflections or stickers. " +
		"Answer with the weight in kilograms as a plain number and nothing else."
)

type visionRequest struct {
	Contents         []visionContent        `json:"contents"`
	GenerationConfig visionGenerationConfig `json:"generationConfig"`
}

type visionContent struct {
	Parts []visionPart `json:"parts"`
}

type visionPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *visionInlineData `json:"inline_data,omitempty"`
}

type visionInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type visionResponse struct {
	Candidates []struct {
		Content visionContent `json:"content"`
	} `json:"candidates"`
}

// VisionProvider asks a multimodal generateContent endpoint to read the
// scale display.
type VisionProvider struct {
	cfg    Config
	client *circuitbreaker.HTTPClient
	log    *zap.Logger
}

func NewVisionProvider(cfg Config, client *circuitbreaker.HTTPClient, log *zap.Logger) *VisionProvider {
	cfg = cfg.withDefaults(VisionProviderName)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultVisionBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVisionModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultVisionPrompt
	}
	return &VisionProvider{cfg: cfg, client: client, log: log}
}

func (p *VisionProvider) Name() string { return p.cfg.Name }

func (p *VisionProvider) Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(visionRequest{
		Contents: []visionContent{{
			Parts: []visionPart{
				{Text: p.cfg.Prompt},
				{InlineData: &visionInlineData{MimeType: img.MimeType, Data: img.Base64}},
			},
		}},
		GenerationConfig: visionGenerationConfig{Temperature: 0, MaxOutputTokens: 32},
	})
	if err != nil {
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureDecode, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(p.cfg.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Reading{}, classify(p.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureStatus,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Reading{}, classifyRead(p.cfg.Name, err)
	}
	if len(out.Candidates) == 0 {
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureEmpty, nil)
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	p.log.Debug("Vision provider answered", zap.String("provider", p.cfg.Name), zap.String("text", text))
	return weightFromText(p.cfg.Name, text, p.cfg.Policy)
}
