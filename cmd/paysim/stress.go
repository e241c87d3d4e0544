package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	transferhttp "github.com/corebank/paysim/http"
)

type stressOptions struct {
	URL        string
	Key        string
	Concurrent int
	Amount     string
	Currency   string
	Source     string
	Dest       string
}

type stressResults struct {
	success   atomic.Int32
	failed    atomic.Int32
	errors    atomic.Int32
	mu        sync.Mutex
	txIDs     map[string]struct{}
	bodies    map[string]struct{}
	durations time.Duration
}

func newStressCommand() *cobra.Command {
	opts := &stressOptions{}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Fire concurrent duplicate transfers at a running simulator",
		Long: `Send N concurrent POST /transfer requests that all share one
idempotency key, then verify the at-most-once guarantee: every response
body must be identical and carry the same transaction id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:8080/transfer", "transfer endpoint URL")
	cmd.Flags().StringVar(&opts.Key, "key", "", "idempotency key (random if omitted)")
	cmd.Flags().IntVar(&opts.Concurrent, "concurrent", 50, "number of concurrent requests")
	cmd.Flags().StringVar(&opts.Amount, "amount", "10.00", "transfer amount")
	cmd.Flags().StringVar(&opts.Currency, "currency", "USD", "transfer currency")
	cmd.Flags().StringVar(&opts.Source, "source", "ACC-1001", "source account")
	cmd.Flags().StringVar(&opts.Dest, "dest", "ACC-2002", "destination account")

	return cmd
}

func runStress(opts *stressOptions) error {
	if opts.Key == "" {
		opts.Key = "stress-" + uuid.NewString()
	}

	payload, err := json.Marshal(map[string]any{
		"client_transfer_id":  opts.Key,
		"source_account":      opts.Source,
		"destination_account": opts.Dest,
		"amount":              opts.Amount,
		"currency":            opts.Currency,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Endpoint:     %s\n", opts.URL)
	fmt.Printf("Idempotency:  %s\n", opts.Key)
	fmt.Printf("Concurrency:  %d requests\n\n", opts.Concurrent)

	results := &stressResults{
		txIDs:  make(map[string]struct{}),
		bodies: make(map[string]struct{}),
	}

	client := &http.Client{Timeout: 10 * time.Second}
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fireRequest(client, opts, payload, results)
		}()
	}
	wg.Wait()
	results.durations = time.Since(start)

	return printVerdict(opts, results)
}

func fireRequest(client *http.Client, opts *stressOptions, payload []byte, results *stressResults) {
	req, err := http.NewRequest(http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		results.errors.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(transferhttp.HeaderIdempotencyKey, opts.Key)

	resp, err := client.Do(req)
	if err != nil {
		results.errors.Add(1)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		results.errors.Add(1)
		return
	}

	var outcome struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(body, &outcome); err != nil {
		results.errors.Add(1)
		return
	}

	switch outcome.Status {
	case "SUCCESS":
		results.success.Add(1)
	case "FAILED":
		results.failed.Add(1)
	default:
		results.errors.Add(1)
		return
	}

	results.mu.Lock()
	if outcome.TransactionID != "" {
		results.txIDs[outcome.TransactionID] = struct{}{}
	}
	results.bodies[string(body)] = struct{}{}
	results.mu.Unlock()
}

func printVerdict(opts *stressOptions, results *stressResults) error {
	total := int32(opts.Concurrent)
	fmt.Printf("Duration:            %v\n", results.durations)
	fmt.Printf("Requests per second: %.2f\n", float64(total)/results.durations.Seconds())
	fmt.Printf("SUCCESS responses:   %d\n", results.success.Load())
	fmt.Printf("FAILED responses:    %d\n", results.failed.Load())
	fmt.Printf("Transport errors:    %d\n", results.errors.Load())
	fmt.Printf("Distinct bodies:     %d\n", len(results.bodies))
	fmt.Printf("Distinct tx ids:     %d\n\n", len(results.txIDs))

	answered := results.success.Load() + results.failed.Load()
	if answered == total && len(results.bodies) == 1 && len(results.txIDs) <= 1 {
		fmt.Println("PASS: all duplicates replayed a single committed outcome")
		return nil
	}
	return fmt.Errorf("at-most-once violated: %d answered, %d distinct bodies, %d distinct tx ids",
		answered, len(results.bodies), len(results.txIDs))
}
