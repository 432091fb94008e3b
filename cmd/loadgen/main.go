package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	serverURL    = "http://localhost:8080"
	storeCount   = 3
	skuCount     = 2
	eventsPerKey = 25
)

type eventRequest struct {
	EventID    string `json:"eventId"`
	StoreID    string `json:"storeId"`
	SKU        string `json:"sku"`
	Delta      int    `json:"delta"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurredAt"`
}

type eventResponse struct {
	Applied         bool   `json:"applied"`
	Status          string `json:"status"`
	CurrentVersion  int    `json:"currentVersion"`
	CurrentQuantity int    `json:"currentQuantity"`
}

type stockResponse struct {
	SKU           string `json:"sku"`
	TotalQuantity int    `json:"totalQuantity"`
}

type keyResult struct {
	storeID          string
	sku              string
	expectedQuantity int
	expectedVersion  int
}

func main() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		log.Fatalf("server not reachable: %v", err)
	}
	resp.Body.Close()

	var applied, gaps, duplicates, stales, failures atomic.Int32

	run := uuid.New().String()[:8]
	var wg sync.WaitGroup
	results := make(chan keyResult, storeCount*skuCount)
	start := time.Now()

	for s := 0; s < storeCount; s++ {
		for k := 0; k < skuCount; k++ {
			wg.Add(1)
			storeID := fmt.Sprintf("store-%s-%d", run, s)
			sku := fmt.Sprintf("sku-%s-%d", run, k)

			go func() {
				defer wg.Done()

				quantity, version := 0, 0
				var lastBody []byte

				for i := 0; i < eventsPerKey; i++ {
					// every 5th event skips a version to force a gap,
					// every 4th resends the previous event as a duplicate
					version++
					if i > 0 && i%5 == 0 {
						version++
					}
					if i > 0 && i%4 == 0 && lastBody != nil {
						out := post(client, lastBody)
						count(out, &applied, &gaps, &duplicates, &stales, &failures)
					}

					delta := rand.Intn(5) + 1
					body, _ := json.Marshal(eventRequest{
						EventID:    uuid.New().String(),
						StoreID:    storeID,
						SKU:        sku,
						Delta:      delta,
						Version:    version,
						OccurredAt: time.Now().UTC().Format(time.RFC3339),
					})
					out := post(client, body)
					count(out, &applied, &gaps, &duplicates, &stales, &failures)
					if out != nil && out.Applied {
						quantity += delta
						lastBody = body
					}
				}

				// a stale replay of version 1 must change nothing
				body, _ := json.Marshal(eventRequest{
					EventID: uuid.New().String(),
					StoreID: storeID, SKU: sku, Delta: 1, Version: 1,
				})
				count(post(client, body), &applied, &gaps, &duplicates, &stales, &failures)

				results <- keyResult{storeID: storeID, sku: sku, expectedQuantity: quantity, expectedVersion: version}
			}()
		}
	}

	wg.Wait()
	close(results)
	elapsed := time.Since(start)

	fmt.Println("========== LOADGEN RESULTS ==========")
	fmt.Printf("Keys:             %d\n", storeCount*skuCount)
	fmt.Printf("Applied:          %d\n", applied.Load())
	fmt.Printf("Gap detected:     %d\n", gaps.Load())
	fmt.Printf("Duplicates:       %d\n", duplicates.Load())
	fmt.Printf("Stale:            %d\n", stales.Load())
	fmt.Printf("Failures:         %d\n", failures.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=====================================")

	ok := failures.Load() == 0
	for res := range results {
		var stock stockResponse
		url := fmt.Sprintf("%s/stock/%s?storeId=%s", serverURL, res.sku, res.storeID)
		resp, err := client.Get(url)
		if err != nil {
			log.Fatalf("stock query failed: %v", err)
		}
		json.NewDecoder(resp.Body).Decode(&stock)
		resp.Body.Close()

		if stock.TotalQuantity != res.expectedQuantity {
			fmt.Printf("FAIL: %s/%s quantity %d, want %d\n", res.storeID, res.sku, stock.TotalQuantity, res.expectedQuantity)
			ok = false
		}
	}

	if ok {
		fmt.Println("PASS: every key converged to its expected quantity, duplicates had no effect")
	}
}

func post(client *http.Client, body []byte) *eventResponse {
	resp, err := client.Post(serverURL+"/events/stock-adjusted", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil
	}
	var out eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	return &out
}

func count(out *eventResponse, applied, gaps, duplicates, stales, failures *atomic.Int32) {
	if out == nil {
		failures.Add(1)
		return
	}
	switch out.Status {
	case "applied":
		applied.Add(1)
	case "gap_detected":
		applied.Add(1)
		gaps.Add(1)
	case "duplicate_event":
		duplicates.Add(1)
	case "stale_version":
		stales.Add(1)
	default:
		failures.Add(1)
	}
}
