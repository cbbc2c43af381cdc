package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/infrastructure/circuitbreaker"
)

var img = domain.EncodedImage{Base64: "AAAA", MimeType: "image/jpeg", SHA256: "abc"}

func newClient(threshold uint32) *circuitbreaker.HTTPClient {
	settings := circuitbreaker.DefaultSettings("test")
	settings.FailureThreshold = threshold
	settings.Timeout = time.Minute
	return circuitbreaker.NewHTTPClient(nil, circuitbreaker.New(settings, zap.NewNop()), zap.NewNop())
}

func visionAnswer(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func kindOf(t *testing.T, err error) domain.FailureKind {
	t.Helper()
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *domain.ProviderError, got %T (%v)", err, err)
	}
	return pe.Kind
}

func TestVisionProvider_ReadsDisplay(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	var gotBody visionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, visionAnswer("The weight is 72.4 kg (tare 3)"))
	}))
	defer srv.Close()

	p := NewVisionProvider(Config{BaseURL: srv.URL, APIKey: "secret", Model: "m1"}, newClient(5), zap.NewNop())

	reading, err := p.Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reading.Weight != 72.4 || reading.Provider != VisionProviderName {
		t.Errorf("unexpected reading %+v", reading)
	}
	if gotPath != "/models/m1:generateContent" || gotKey != "secret" {
		t.Errorf("unexpected request %s key=%s", gotPath, gotKey)
	}
	if gotQuery != "" {
		t.Errorf("expected no query string, got %q", gotQuery)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if gotBody.Contents[0].Parts[1].InlineData.Data != "AAAA" {
		t.Errorf("image not sent inline")
	}
}

func TestVisionProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    domain.FailureKind
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, domain.FailureStatus},
		{"client error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, domain.FailureStatus},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "{not json")
		}, domain.FailureDecode},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"candidates":[]}`)
		}, domain.FailureEmpty},
		{"blank text", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, visionAnswer("   "))
		}, domain.FailureEmpty},
		{"no number", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, visionAnswer("I cannot see a display"))
		}, domain.FailureNoNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewVisionProvider(Config{BaseURL: srv.URL}, newClient(5), zap.NewNop())
			_, err := p.Recognize(context.Background(), img)
			if got := kindOf(t, err); got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
			if !errors.Is(err, domain.ErrProviderFailure) {
				t.Errorf("expected ErrProviderFailure match")
			}
		})
	}
}

func TestVisionProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewVisionProvider(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, newClient(5), zap.NewNop())

	start := time.Now()
	_, err := p.Recognize(context.Background(), img)
	if got := kindOf(t, err); got != domain.FailureTimeout {
		t.Errorf("expected timeout, got %s (%v)", got, err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout was not enforced")
	}
}

func TestVisionProvider_CircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewVisionProvider(Config{BaseURL: srv.URL}, newClient(1), zap.NewNop())

	if _, err := p.Recognize(context.Background(), img); kindOf(t, err) != domain.FailureStatus {
		t.Fatalf("expected first call to fail with status, got %v", err)
	}
	if _, err := p.Recognize(context.Background(), img); kindOf(t, err) != domain.FailureCircuitOpen {
		t.Fatalf("expected circuit_open, got %v", err)
	}
}

func TestOCRProvider_ParsesText(t *testing.T) {
	var gotKey, gotImage, gotEngine string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotImage = r.FormValue("base64Image")
		gotEngine = r.FormValue("OCREngine")
		fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"  \r\n"},{"ParsedText":"12.50 kg\r\n"}],"IsErroredOnProcessing":false}`)
	}))
	defer srv.Close()

	p := NewOCRProvider(Config{BaseURL: srv.URL, APIKey: "k"}, newClient(5), zap.NewNop())

	reading, err := p.Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reading.Weight != 12.5 || reading.Provider != OCRProviderName {
		t.Errorf("unexpected reading %+v", reading)
	}
	if gotKey != "k" || gotEngine != DefaultOCREngine {
		t.Errorf("unexpected headers/fields key=%q engine=%q", gotKey, gotEngine)
	}
	if !strings.HasPrefix(gotImage, "data:image/jpeg;base64,") {
		t.Errorf("expected data uri, got %q", gotImage)
	}
}

func TestOCRProvider_ProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ParsedResults":null,"IsErroredOnProcessing":true,"ErrorMessage":["Unable to recognize the file type"]}`)
	}))
	defer srv.Close()

	p := NewOCRProvider(Config{BaseURL: srv.URL}, newClient(5), zap.NewNop())

	_, err := p.Recognize(context.Background(), img)
	if got := kindOf(t, err); got != domain.FailureStatus {
		t.Errorf("expected status, got %s", got)
	}
	if !strings.Contains(err.Error(), "Unable to recognize") {
		t.Errorf("expected provider message in error, got %v", err)
	}
}

func TestOCRProvider_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ParsedResults":[],"IsErroredOnProcessing":false,"ErrorMessage":"none"}`)
	}))
	defer srv.Close()

	p := NewOCRProvider(Config{BaseURL: srv.URL}, newClient(5), zap.NewNop())

	_, err := p.Recognize(context.Background(), img)
	if got := kindOf(t, err); got != domain.FailureEmpty {
		t.Errorf("expected empty, got %s", got)
	}
}

func TestOCRProvider_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOCRProvider(Config{BaseURL: url}, newClient(5), zap.NewNop())

	_, err := p.Recognize(context.Background(), img)
	if got := kindOf(t, err); got != domain.FailureNetwork {
		t.Errorf("expected network, got %s (%v)", got, err)
	}
}

func TestVisionProvider_ErrorsDoNotCarryAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	const key = "SECRET-KEY-123"
	p := NewVisionProvider(Config{BaseURL: url, APIKey: key, Model: "gemini-1.5-flash"}, newClient(5), zap.NewNop())

	_, err := p.Recognize(context.Background(), img)
	if got := kindOf(t, err); got != domain.FailureNetwork {
		t.Errorf("expected network, got %s (%v)", got, err)
	}
	if strings.Contains(err.Error(), key) {
		t.Errorf("error text leaks the api key: %v", err)
	}
	if strings.Contains(err.Error(), url) {
		t.Errorf("error text carries the request url: %v", err)
	}
}

func TestClassify_StripsRequestURL(t *testing.T) {
	err := classify("vision", &neturl.Error{
		Op:  "Post",
		URL: "http://example.test/models/m1:generateContent?key=abc",
		Err: errors.New("connection refused"),
	})
	if err.Kind != domain.FailureNetwork {
		t.Errorf("expected network, got %s", err.Kind)
	}
	if strings.Contains(err.Error(), "key=abc") || strings.Contains(err.Error(), "example.test") {
		t.Errorf("unexpected error text %q", err.Error())
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("cause dropped: %q", err.Error())
	}
}
