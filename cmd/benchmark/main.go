// Benchmark tool for load-testing the evaluation pipeline with synthetic
// disclosures.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -count 10000
//
// This tool:
//  1. Generates synthetic disclosures across a pool of people and entities
//  2. Sends each one to POST /evaluate
//  3. Counts threshold triggers and detected conflicts
//  4. Reports latency and throughput
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Disclosure is the request body for POST /evaluate.
type Disclosure struct {
	PersonID       string         `json:"personId"`
	Type           string         `json:"type"`
	RelatedCompany string         `json:"relatedCompany,omitempty"`
	RelatedPerson  string         `json:"relatedPerson,omitempty"`
	Value          float64        `json:"value,omitempty"`
	FactData       map[string]any `json:"factData,omitempty"`
}

// EvaluateResponse is the subset of the API response the benchmark reads.
type EvaluateResponse struct {
	DisclosureID string `json:"disclosureId"`
	Threshold    struct {
		Triggered         bool   `json:"triggered"`
		RecommendedAction string `json:"recommendedAction"`
	} `json:"threshold"`
	Conflicts struct {
		ConflictCount int `json:"conflictCount"`
	} `json:"conflicts"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalProcessed     int64
	TotalErrors        int64
	ThresholdTriggered int64
	ConflictsDetected  int64

	ProcessingTimeMs int64
}

var disclosureTypes = []string{"gift", "outside_employment", "vendor_relationship", "financial_interest"}

var companyNames = []string{
	"Acme Corp", "Globex", "Initech", "Umbrella Holdings", "Stark Industries",
	"Wayne Enterprises", "Tyrell Corp", "Wonka Industries", "Cyberdyne Systems",
	"Soylent Corp", "Massive Dynamic", "Hooli",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "service base URL")
	orgID := flag.String("org", "benchmark-test", "org ID for requests")
	count := flag.Int("count", 10000, "number of disclosures to send")
	workers := flag.Int("workers", 10, "number of concurrent workers")
	people := flag.Int("people", 200, "size of the synthetic person pool")
	value := flag.Float64("value", 1000, "max disclosure value")
	verbose := flag.Bool("verbose", false, "print each result")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        RISKINTEL BENCHMARK - Disclosure Evaluation            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nService URL: %s\n", *baseURL)
	fmt.Printf("Org ID:      %s\n", *orgID)
	fmt.Printf("Count:       %d\n", *count)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("People:      %d\n", *people)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: service not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the service is running:")
		fmt.Println("  go run cmd/riskintel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ service is healthy")

	// A small entity pool relative to count makes repeat disclosures for
	// the same (person, entity) pair common, so self-dealing detection
	// gets exercised rather than bypassed.
	rng := rand.New(rand.NewSource(*seed))
	disclosures := make([]Disclosure, *count)
	for i := range disclosures {
		disclosures[i] = Disclosure{
			PersonID:       fmt.Sprintf("person-%03d", rng.Intn(*people)),
			Type:           disclosureTypes[rng.Intn(len(disclosureTypes))],
			RelatedCompany: companyNames[rng.Intn(len(companyNames))],
			Value:          float64(rng.Intn(int(*value))) + 1,
		}
	}

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(disclosures, *baseURL, *orgID, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func runBenchmark(disclosures []Disclosure, baseURL, orgID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Disclosure, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for d := range work {
				start := time.Now()
				result, err := evaluateDisclosure(client, baseURL, orgID, d)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", d.PersonID, err)
					}
					continue
				}

				if result.Threshold.Triggered {
					atomic.AddInt64(&metrics.ThresholdTriggered, 1)
				}
				if result.Conflicts.ConflictCount > 0 {
					atomic.AddInt64(&metrics.ConflictsDetected, int64(result.Conflicts.ConflictCount))
				}

				if verbose {
					fmt.Printf("%-12s | Type: %-20s | Entity: %-20s | Value: $%10.2f | Triggered: %-5v | Conflicts: %d\n",
						d.PersonID,
						d.Type,
						d.RelatedCompany,
						d.Value,
						result.Threshold.Triggered,
						result.Conflicts.ConflictCount,
					)
				}
			}
		}()
	}

	for _, d := range disclosures {
		work <- d
	}
	close(work)

	wg.Wait()

	return metrics
}

func evaluateDisclosure(client *http.Client, baseURL, orgID string, d Disclosure) (*EvaluateResponse, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Org-ID", orgID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 EVALUATION STATISTICS\n")
	fmt.Printf("   Total Processed:      %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:               %d\n", m.TotalErrors)
	fmt.Printf("   Threshold Triggered:  %d\n", m.ThresholdTriggered)
	fmt.Printf("   Conflicts Detected:   %d\n", m.ConflictsDetected)

	if m.TotalProcessed > 0 {
		triggerRate := float64(m.ThresholdTriggered) / float64(m.TotalProcessed) * 100
		fmt.Printf("   Trigger Rate:         %.2f%%\n", triggerRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f evaluations/sec\n", rps)
	}

	fmt.Println()
}
