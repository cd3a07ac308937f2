// Command scada_sim simulates an OPC-UA ingestion client. It reports a
// connection lifecycle (connecting, then connected) and posts batches of
// HMAC-signed readings against configured node IDs, which exercises the
// ingest surface end to end without real field hardware.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	baseURL      string
	secret       string
	tenantID     string
	connectionID string
	nodeIDs      []string
	batchSize    int
	intervalMS   int
	iterations   int
	failRate     float64
	jitter       float64
}

func main() {
	cfg := loadConfig()
	if cfg.secret == "" {
		log.Fatal("INGEST_HMAC_SECRET is required")
	}
	if len(cfg.nodeIDs) == 0 {
		log.Fatal("at least one node ID is required (-nodes)")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := postStatus(client, cfg, "connecting", ""); err != nil {
		log.Fatalf("status connecting: %v", err)
	}
	if err := postStatus(client, cfg, "connected", ""); err != nil {
		log.Fatalf("status connected: %v", err)
	}
	log.Printf("connection %s reported connected", cfg.connectionID)

	base := make(map[string]float64, len(cfg.nodeIDs))
	for i, node := range cfg.nodeIDs {
		base[node] = 100 * float64(i+1)
	}

	for iter := 0; cfg.iterations <= 0 || iter < cfg.iterations; iter++ {
		if cfg.failRate > 0 && rng.Float64() < cfg.failRate {
			if err := postStatus(client, cfg, "error", "simulated link fault"); err != nil {
				log.Printf("status error: %v", err)
			}
			time.Sleep(time.Duration(cfg.intervalMS) * time.Millisecond)
			if err := postStatus(client, cfg, "connected", ""); err != nil {
				log.Printf("status recovery: %v", err)
			}
			log.Printf("iteration %d: simulated fault and recovery", iter+1)
			continue
		}

		batch := buildBatch(cfg, base, rng)
		accepted, suppressed, unmapped, err := postReadings(client, cfg, batch)
		if err != nil {
			log.Printf("iteration %d: readings error: %v", iter+1, err)
		} else {
			log.Printf("iteration %d: %d accepted, %d suppressed, %d unmapped", iter+1, accepted, suppressed, unmapped)
		}
		time.Sleep(time.Duration(cfg.intervalMS) * time.Millisecond)
	}
}

func loadConfig() config {
	var cfg config
	var nodes string
	flag.StringVar(&cfg.baseURL, "base-url", envOrDefault("SIM_BASE_URL", "http://localhost:8080"), "wellpulse base URL")
	flag.StringVar(&cfg.secret, "secret", envOrDefault("INGEST_HMAC_SECRET", ""), "ingest HMAC secret")
	flag.StringVar(&cfg.tenantID, "tenant", envOrDefault("SIM_TENANT_ID", "tenant-demo"), "tenant ID")
	flag.StringVar(&cfg.connectionID, "connection", envOrDefault("SIM_CONNECTION_ID", ""), "SCADA connection ID")
	flag.StringVar(&nodes, "nodes", envOrDefault("SIM_NODE_IDS", ""), "comma-separated OPC-UA node IDs")
	flag.IntVar(&cfg.batchSize, "batch-size", envIntOrDefault("SIM_BATCH_SIZE", 10), "readings per batch")
	flag.IntVar(&cfg.intervalMS, "interval-ms", envIntOrDefault("SIM_INTERVAL_MS", 1000), "delay between batches")
	flag.IntVar(&cfg.iterations, "iterations", envIntOrDefault("SIM_ITERATIONS", 10), "batch count, 0 runs forever")
	flag.Float64Var(&cfg.failRate, "fail-rate", 0, "probability of a simulated link fault per iteration")
	flag.Float64Var(&cfg.jitter, "jitter", 0.05, "relative noise applied to each reading")
	flag.Parse()

	for _, node := range strings.Split(nodes, ",") {
		node = strings.TrimSpace(node)
		if node != "" {
			cfg.nodeIDs = append(cfg.nodeIDs, node)
		}
	}
	if cfg.connectionID == "" {
		log.Fatal("connection ID is required (-connection)")
	}
	return cfg
}

func buildBatch(cfg config, base map[string]float64, rng *rand.Rand) []map[string]any {
	size := cfg.batchSize
	if size > len(cfg.nodeIDs) {
		size = len(cfg.nodeIDs)
	}
	readings := make([]map[string]any, 0, size)
	now := time.Now().UTC()
	for _, node := range cfg.nodeIDs[:size] {
		value := base[node] * (1 + cfg.jitter*(rng.Float64()*2-1))
		readings = append(readings, map[string]any{
			"nodeId":    node,
			"value":     value,
			"quality":   "good",
			"timestamp": now.Format(time.RFC3339),
		})
	}
	return readings
}

func postStatus(client *http.Client, cfg config, state, message string) error {
	payload := map[string]string{
		"tenantId":     cfg.tenantID,
		"connectionId": cfg.connectionID,
		"state":        state,
		"message":      message,
	}
	_, err := postSigned(client, cfg, "/ingest/scada/status", payload)
	return err
}

func postReadings(client *http.Client, cfg config, readings []map[string]any) (accepted, suppressed, unmapped int, err error) {
	payload := map[string]any{
		"tenantId":     cfg.tenantID,
		"connectionId": cfg.connectionID,
		"readings":     readings,
	}
	body, err := postSigned(client, cfg, "/ingest/scada/readings", payload)
	if err != nil {
		return 0, 0, 0, err
	}
	var result struct {
		Accepted   int `json:"accepted"`
		Suppressed int `json:"suppressed"`
		Unmapped   int `json:"unmapped"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, 0, err
	}
	return result.Accepted, result.Suppressed, result.Unmapped, nil
}

func postSigned(client *http.Client, cfg config, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(cfg.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("\n"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, cfg.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", signature)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
