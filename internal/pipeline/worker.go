package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

// fetchJob loads one input table into its slot of the shared Inputs.
type fetchJob struct {
	name  string
	fetch func(ctx context.Context) error
}

// Loader fetches every input table concurrently and joins before returning.
type Loader struct {
	sources Sources
	config  PipelineConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewLoader creates a loader over the given sources.
func NewLoader(sources Sources, config PipelineConfig) *Loader {
	return &Loader{
		sources: sources,
		config:  config,
		sleep:   sleepContext,
	}
}

// Load returns fully materialised inputs for a run. Sales are fetched for the
// long window plus SalesExtraDays, inventory for the long window, both ending
// at the reference date.
func (l *Loader) Load(ctx context.Context, p restock.Params) (restock.Inputs, error) {
	if err := l.sources.validate(); err != nil {
		return restock.Inputs{}, err
	}

	to := p.ReferenceDate
	longDays := p.LongTermDays
	if longDays <= 0 {
		longDays = restock.DefaultLongTermDays
	}
	salesFrom := to.AddDate(0, 0, -(longDays + l.config.SalesExtraDays))
	inventoryFrom := to.AddDate(0, 0, -longDays)

	var in restock.Inputs
	jobs := []fetchJob{
		{name: "sales", fetch: func(ctx context.Context) (err error) {
			in.Sales, err = l.sources.Sales.FetchSales(ctx, salesFrom, to)
			return err
		}},
		{name: "inventory", fetch: func(ctx context.Context) (err error) {
			in.Inventory, err = l.sources.Inventory.FetchInventory(ctx, inventoryFrom, to)
			return err
		}},
		{name: "warehouse", fetch: func(ctx context.Context) (err error) {
			in.Warehouse, err = l.sources.Warehouse.FetchWarehouse(ctx)
			return err
		}},
		{name: "incoming", fetch: func(ctx context.Context) (err error) {
			in.IncomingOrders, err = l.sources.Incoming.FetchIncoming(ctx)
			return err
		}},
		{name: "event sheet", fetch: func(ctx context.Context) (err error) {
			in.EventSheet, err = l.sources.EventSheet.FetchEventSheet(ctx)
			return err
		}},
		{name: "dictionary", fetch: func(ctx context.Context) (err error) {
			in.Dictionary, err = l.sources.Dictionary.FetchDictionary(ctx)
			return err
		}},
		{name: "dimensions", fetch: func(ctx context.Context) (err error) {
			in.Dimensions, err = l.sources.Dimensions.FetchDimensions(ctx)
			return err
		}},
	}

	if err := l.runParallel(ctx, jobs); err != nil {
		return restock.Inputs{}, err
	}

	log.Info().
		Int("sales", len(in.Sales)).
		Int("inventory", len(in.Inventory)).
		Int("warehouse", len(in.Warehouse)).
		Int("incoming_orders", len(in.IncomingOrders)).
		Int("event_sheet_rows", len(in.EventSheet.Rows)).
		Int("dictionary", len(in.Dictionary)).
		Int("dimensions", len(in.Dimensions)).
		Msgf("[%s] inputs loaded", l.config.Name)

	return in, nil
}

// LoadHistory fetches what a sales projection needs: sales from salesFrom and
// inventory for the long window, both ending at the reference date.
func (l *Loader) LoadHistory(ctx context.Context, p restock.Params, salesFrom time.Time) (restock.Inputs, error) {
	if l.sources.Sales == nil || l.sources.Inventory == nil {
		return restock.Inputs{}, errors.New("sales and inventory sources are required")
	}

	to := p.ReferenceDate
	longDays := p.LongTermDays
	if longDays <= 0 {
		longDays = restock.DefaultProjectionLongTermDays
	}
	inventoryFrom := to.AddDate(0, 0, -longDays)

	var in restock.Inputs
	jobs := []fetchJob{
		{name: "sales", fetch: func(ctx context.Context) (err error) {
			in.Sales, err = l.sources.Sales.FetchSales(ctx, salesFrom, to)
			return err
		}},
		{name: "inventory", fetch: func(ctx context.Context) (err error) {
			in.Inventory, err = l.sources.Inventory.FetchInventory(ctx, inventoryFrom, to)
			return err
		}},
	}
	if err := l.runParallel(ctx, jobs); err != nil {
		return restock.Inputs{}, err
	}

	log.Info().
		Int("sales", len(in.Sales)).
		Int("inventory", len(in.Inventory)).
		Time("sales_from", salesFrom).
		Msgf("[%s] history loaded", l.config.Name)

	return in, nil
}

// runParallel processes jobs using a worker pool. Every job runs to
// completion; failures are joined in job order.
func (l *Loader) runParallel(ctx context.Context, jobs []fetchJob) error {
	workerCount := l.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	jobChan := make(chan int, len(jobs))
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				if err := l.fetchWithRetry(ctx, jobs[idx]); err != nil {
					log.Error().Err(err).Int("worker", workerID).Str("source", jobs[idx].name).
						Msgf("[%s] fetch failed", l.config.Name)
					errs[idx] = fmt.Errorf("fetch %s: %w", jobs[idx].name, err)
				}
			}
		}(i)
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	return errors.Join(errs...)
}

// fetchWithRetry retries transient failures with doubling backoff.
// Configuration problems and cancellation are returned immediately.
func (l *Loader) fetchWithRetry(ctx context.Context, job fetchJob) error {
	attempts := l.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := l.config.RetryBackoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = job.fetch(ctx); err == nil {
			return nil
		}
		if !retryable(ctx, err) || attempt == attempts {
			break
		}

		log.Warn().Err(err).Str("source", job.name).Int("attempt", attempt).Dur("backoff", backoff).
			Msgf("[%s] will retry", l.config.Name)
		if sleepErr := l.sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !restock.IsConfigurationError(err) && !errors.Is(err, restock.ErrMissingColumn)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
