package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

func TestLoader_Load(t *testing.T) {
	src := newMemSource(fixtureInputs())
	loader := NewLoader(src.sources(), testConfig(t))

	in, err := loader.Load(context.Background(), fixtureParams())
	require.NoError(t, err)

	assert.Len(t, in.Sales, 11)
	assert.Len(t, in.Inventory, 11)
	assert.Len(t, in.Warehouse, 1)
	assert.Len(t, in.IncomingOrders, 1)
	assert.Len(t, in.EventSheet.Rows, 1)
	assert.Len(t, in.Dictionary, 1)
	assert.Len(t, in.Dimensions, 1)

	// long window of 10 days plus 5 extra sales days
	assert.Equal(t, [2]time.Time{day(2024, time.June, 16), day(2024, time.July, 1)}, src.windows["sales"])
	assert.Equal(t, [2]time.Time{day(2024, time.June, 21), day(2024, time.July, 1)}, src.windows["inventory"])
}

func TestLoader_MissingSource(t *testing.T) {
	sources := newMemSource(fixtureInputs()).sources()
	sources.Dimensions = nil

	_, err := NewLoader(sources, testConfig(t)).Load(context.Background(), fixtureParams())
	require.ErrorIs(t, err, ErrSourceMissing)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestLoader_RetriesTransientFailures(t *testing.T) {
	src := newMemSource(fixtureInputs())
	src.failures["warehouse"] = []error{errors.New("connection reset"), errors.New("connection reset")}

	cfg := testConfig(t)
	cfg.RetryAttempts = 3
	loader := NewLoader(src.sources(), cfg)
	var slept []time.Duration
	loader.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	in, err := loader.Load(context.Background(), fixtureParams())
	require.NoError(t, err)
	assert.Len(t, in.Warehouse, 1)
	assert.Equal(t, 3, src.callCount("warehouse"))
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, slept)
}

func TestLoader_GivesUpAfterRetries(t *testing.T) {
	src := newMemSource(fixtureInputs())
	boom := errors.New("timeout")
	src.failures["incoming"] = []error{boom, boom, boom, boom}

	cfg := testConfig(t)
	cfg.RetryAttempts = 2
	loader := NewLoader(src.sources(), cfg)
	loader.sleep = noSleep

	_, err := loader.Load(context.Background(), fixtureParams())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch incoming")
	assert.Equal(t, 2, src.callCount("incoming"))
}

func TestLoader_DoesNotRetryMissingColumn(t *testing.T) {
	src := newMemSource(fixtureInputs())
	src.failures["sales"] = []error{restock.ErrMissingColumn}

	cfg := testConfig(t)
	cfg.RetryAttempts = 5
	loader := NewLoader(src.sources(), cfg)
	loader.sleep = noSleep

	_, err := loader.Load(context.Background(), fixtureParams())
	require.ErrorIs(t, err, restock.ErrMissingColumn)
	assert.Equal(t, 1, src.callCount("sales"))
}

func TestLoader_JoinsFailures(t *testing.T) {
	src := newMemSource(fixtureInputs())
	errSales := errors.New("sales down")
	errDims := errors.New("dimensions down")
	src.failures["sales"] = []error{errSales}
	src.failures["dimensions"] = []error{errDims}

	cfg := testConfig(t)
	cfg.RetryAttempts = 1
	_, err := NewLoader(src.sources(), cfg).Load(context.Background(), fixtureParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, errSales)
	assert.ErrorIs(t, err, errDims)
	// every job still ran
	assert.Equal(t, 1, src.callCount("event sheet"))
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	assert.True(t, retryable(ctx, errors.New("io")))
	assert.False(t, retryable(ctx, context.DeadlineExceeded))
	assert.False(t, retryable(ctx, restock.ErrMissingColumn))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, retryable(cancelled, errors.New("io")))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), 0))
}
