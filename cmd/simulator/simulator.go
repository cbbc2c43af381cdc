package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatorConfig holds the simulator configuration
type SimulatorConfig struct {
	ServerURL   string
	StoreID     string
	Count       int
	Concurrency int
	Token       string
	FullFlow    bool // calibrate, verify, add an item and finalize each transaction
	Timeout     time.Duration
}

// Report summarizes one run.
type Report struct {
	Created    int
	Failed     int
	Duplicates []string
	IDs        []string
	Elapsed    time.Duration
}

func (r Report) FirstID() string {
	if len(r.IDs) == 0 {
		return ""
	}
	return r.IDs[0]
}

func (r Report) LastID() string {
	if len(r.IDs) == 0 {
		return ""
	}
	return r.IDs[len(r.IDs)-1]
}

// Simulator drives the HTTP API the way many manager devices of one store
// would, opening transactions concurrently.
type Simulator struct {
	config *SimulatorConfig
	client *http.Client
	log    *zap.Logger
	image  string
}

func NewSimulator(config *SimulatorConfig, log *zap.Logger) *Simulator {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Simulator{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		log:    log,
		image:  sampleImage(),
	}
}

func (s *Simulator) Run(ctx context.Context) Report {
	start := time.Now()
	jobs := make(chan int)
	ids := make(chan string, s.config.Count)
	var failed int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < s.config.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				id, err := s.runOne(ctx, n)
				if err != nil {
					s.log.Warn("Transaction failed", zap.Int("n", n), zap.Error(err))
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				ids <- id
			}
		}()
	}

dispatch:
	for n := 1; n <= s.config.Count; n++ {
		select {
		case jobs <- n:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(ids)

	report := Report{Failed: failed}
	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			report.Duplicates = append(report.Duplicates, id)
			continue
		}
		seen[id] = true
		report.IDs = append(report.IDs, id)
	}
	sort.Strings(report.IDs)
	report.Created = len(report.IDs) + len(report.Duplicates)
	report.Elapsed = time.Since(start)
	return report
}

func (s *Simulator) runOne(ctx context.Context, n int) (string, error) {
	var tx struct {
		TransactionID string `json:"transaction_id"`
	}
	err := s.call(ctx, http.MethodPost, "/api/v1/transactions", map[string]string{
		"store_id":       s.config.StoreID,
		"store_name":     "Simulated Store " + s.config.StoreID,
		"store_location": "Load Test",
		"manager_name":   fmt.Sprintf("manager-%d", n),
		"vendor_name":    fmt.Sprintf("vendor-%d", n),
	}, &tx)
	if err != nil {
		return "", err
	}
	if tx.TransactionID == "" {
		return "", fmt.Errorf("server returned no transaction_id")
	}
	if !s.config.FullFlow {
		return tx.TransactionID, nil
	}

	base := "/api/v1/transactions/" + tx.TransactionID
	steps := []struct {
		path string
		body interface{}
	}{
		{base + "/calibration", map[string]interface{}{"image": s.image, "fetch_weight": 10.0, "enter_weight": 10.05}},
		{base + "/credential", map[string]interface{}{"kind": "signature", "signature": s.image, "verified_by": "simulator"}},
		{base + "/items", map[string]interface{}{"material_type": "Cardboard", "weight": 2.5, "weight_source": "manually"}},
		{base + "/finalize", nil},
	}
	for _, step := range steps {
		if err := s.call(ctx, http.MethodPost, step.path, step.body, nil); err != nil {
			return tx.TransactionID, fmt.Errorf("%s: %w", step.path, err)
		}
	}
	return tx.TransactionID, nil
}

func (s *Simulator) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.config.ServerURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// sampleImage is a small PNG data URI accepted as a calibration photo and
// as a signature.
func sampleImage() string {
	img := image.NewGray(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		img.SetGray(x, 8, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
