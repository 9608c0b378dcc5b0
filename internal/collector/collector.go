package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sentinel/internal/adapters"
	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// Collector fans a subject out to every adapter concurrently and hands
// cards back in completion order. A hung or panicking adapter degrades
// into a failed card instead of stalling the turn.
type Collector struct {
	timeout       time.Duration
	checkParallel int
}

// New creates a collector with the given per-adapter timeout.
func New(timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = adapters.DefaultTimeout
	}
	return &Collector{timeout: timeout, checkParallel: 4}
}

// Collect runs every adapter against the subject and calls emit for each
// card as its adapter finishes. It returns the total card count once all
// adapters are done. Card order across adapters is completion order, not
// registration order.
func (c *Collector) Collect(ctx context.Context, subject adapters.Subject, set []adapters.Adapter, emit func(models.EvidenceCard)) int {
	results := make(chan []models.EvidenceCard, len(set))

	var wg sync.WaitGroup
	for _, a := range set {
		wg.Add(1)
		go func(a adapters.Adapter) {
			defer wg.Done()
			results <- c.runOne(ctx, a, subject)
		}(a)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	total := 0
	for cards := range results {
		for _, card := range cards {
			emit(card)
			total++
		}
	}
	return total
}

func (c *Collector) runOne(ctx context.Context, a adapters.Adapter, subject adapters.Subject) (cards []models.EvidenceCard) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Adapter %s panicked: %v", a.Name(), r)
			cards = []models.EvidenceCard{adapters.FailedCard(
				"Source "+a.Name()+" failed",
				fmt.Errorf("internal error: %v", r),
				a.Name(),
			)}
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	cards = a.Run(callCtx, subject)
	logger.Debugf("Adapter %s returned %d cards in %s", a.Name(), len(cards), time.Since(start))
	return cards
}

// CheckFunc runs one fraud check against a product's retailer. Checks do
// not return errors; an unreachable source reports a warning status.
type CheckFunc func(ctx context.Context, p models.Product) models.FraudCheck

// CheckProducts runs the check set against every product, products in
// parallel and checks within a product in order. emit is called once per
// completed check under an internal lock, so callers can stream results
// without their own synchronization. The returned map is keyed by
// product ID with checks in check-set order.
func (c *Collector) CheckProducts(ctx context.Context, products []models.Product, checks []CheckFunc, emit func(p models.Product, check models.FraudCheck)) map[string][]models.FraudCheck {
	out := make(map[string][]models.FraudCheck, len(products))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.checkParallel)

	for _, p := range products {
		g.Go(func() error {
			results := make([]models.FraudCheck, 0, len(checks))
			for _, check := range checks {
				callCtx, cancel := context.WithTimeout(gctx, c.timeout)
				fc := check(callCtx, p)
				cancel()
				results = append(results, fc)

				mu.Lock()
				if emit != nil {
					emit(p, fc)
				}
				mu.Unlock()
			}
			mu.Lock()
			out[p.ID] = results
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}
