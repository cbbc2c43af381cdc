package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/infrastructure/circuitbreaker"
)

const (
	OCRProviderName = "ocr"

	DefaultOCRBaseURL  = "https://api.ocr.space/parse/image"
	DefaultOCRLanguage = "eng"
	DefaultOCREngine   = "2"
)

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// errorText flattens ErrorMessage, which the API sends either as a string or
// as a list of strings.
func (r ocrSpaceResponse) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(r.ErrorMessage, &s); err == nil {
		return s
	}
	return string(r.ErrorMessage)
}

// OCRProvider posts the image to a generic text-extraction service and pulls
// a number out of whatever text comes back.
type OCRProvider struct {
	cfg    Config
	client *circuitbreaker.HTTPClient
	log    *zap.Logger
}

func NewOCRProvider(cfg Config, client *circuitbreaker.HTTPClient, log *zap.Logger) *OCRProvider {
	cfg = cfg.withDefaults(OCRProviderName)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOCRBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultOCRLanguage
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultOCREngine
	}
	return &OCRProvider{cfg: cfg, client: client, log: log}
}

func (p *OCRProvider) Name() string { return p.cfg.Name }

func (p *OCRProvider) Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"base64Image", img.DataURI()},
		{"language", p.cfg.Language},
		{"OCREngine", p.cfg.Engine},
		{"scale", "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return domain.Reading{}, fail(p.cfg.Name, domain.FailureNetwork, err)
		}
	}
	if err := w.Close(); err != nil {
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, &body)
	if err != nil {
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureNetwork, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("apikey", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Reading{}, classify(p.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureStatus,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Reading{}, classifyRead(p.cfg.Name, err)
	}
	if out.IsErroredOnProcessing {
		return domain.Reading{}, fail(p.cfg.Name, domain.FailureStatus,
			fmt.Errorf("processing failed: %s", out.errorText()))
	}

	var texts []string
	for _, r := range out.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			texts = append(texts, t)
		}
	}
	text := strings.Join(texts, "\n")
	p.log.Debug("OCR provider answered", zap.String("provider", p.cfg.Name), zap.Int("results", len(out.ParsedResults)))
	return weightFromText(p.cfg.Name, text, p.cfg.Policy)
}
