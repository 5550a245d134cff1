package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"analysis-enginev1/internal/metrics"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/registry"
)

// ────────────────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────────────────

// fakeStore is an in-memory model.Store. Symbols listed in block hang
// LoadBars until the caller's context expires, simulating a stalled
// storage read.
type fakeStore struct {
	mu sync.Mutex

	bars  map[string][]model.Bar
	block map[string]bool
	inds  []model.IndicatorDefinition
	pats  []model.PatternDefinition

	results    []*model.IndicatorResult
	detections []*model.PatternDetection
}

func (f *fakeStore) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Bar, error) {
	if f.block[symbol] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.bars[symbol], nil
}

func (f *fakeStore) LoadEnabledIndicatorDefinitions(ctx context.Context) ([]model.IndicatorDefinition, error) {
	return f.inds, nil
}

func (f *fakeStore) LoadEnabledPatternDefinitions(ctx context.Context, timeframe string) ([]model.PatternDefinition, error) {
	return f.pats, nil
}

func (f *fakeStore) StoreIndicatorResult(ctx context.Context, r *model.IndicatorResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeStore) StorePatternDetection(ctx context.Context, d *model.PatternDetection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections = append(f.detections, d)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results), len(f.detections)
}

// Prometheus metrics register against the default registry, so the test
// binary builds them once.
var (
	promOnce sync.Once
	testProm *metrics.Metrics
)

func testMetrics() *metrics.Metrics {
	promOnce.Do(func() { testProm = metrics.NewMetrics() })
	return testProm
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *fakeStore, cfg Config) *Service {
	return New(cfg, store, nil, registry.Builtins(), testMetrics(), testLogger())
}

// testBars builds n mildly bullish daily bars (body 0.8 of range 1.2, so
// none of them accidentally reads as a doji).
func testBars(symbol string, n int) []model.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		if i%3 == 0 {
			price += 1.4
		} else {
			price -= 0.6
		}
		open := price - 0.8
		bars[i] = model.Bar{
			Symbol: symbol, Timeframe: "1day", TS: base.AddDate(0, 0, i),
			Open: open, High: price + 0.2, Low: open - 0.2, Close: price, Volume: 1000,
		}
	}
	return bars
}

// withDoji replaces the bar at index i with one whose body is exactly half
// the doji tolerance limit, scoring confidence 0.75.
func withDoji(bars []model.Bar, i int) []model.Bar {
	c := bars[i].Close
	bars[i] = model.Bar{
		Symbol: bars[i].Symbol, Timeframe: bars[i].Timeframe, TS: bars[i].TS,
		Open: c - 0.5, High: c + 5, Low: c - 5, Close: c, Volume: 1000,
	}
	return bars
}

func defaultTestCatalog() ([]model.IndicatorDefinition, []model.PatternDefinition) {
	inds := []model.IndicatorDefinition{
		{Name: "sma_20", Impl: "sma", Params: model.Params{"period": 20}, Enabled: true},
		{Name: "rsi_14", Impl: "rsi", Params: model.Params{"period": 14}, Enabled: true},
	}
	pats := []model.PatternDefinition{
		{Name: "doji", Impl: "doji", Params: model.Params{"body_tolerance": 0.1}, ConfidenceThreshold: 0.5, Timeframes: "1day", Enabled: true},
		{Name: "oversold_reversal", Impl: "oversold_reversal", Params: model.Params{"oversold": 30}, ConfidenceThreshold: 0.5, Timeframes: "1day", Enabled: true},
	}
	return inds, pats
}

// ────────────────────────────────────────────────────────────
// AnalyzeSymbol
// ────────────────────────────────────────────────────────────

func TestAnalyzeSymbol_CommitsResultsAndDetections(t *testing.T) {
	inds, pats := defaultTestCatalog()
	store := &fakeStore{
		bars: map[string][]model.Bar{"AAA": withDoji(testBars("AAA", 40), 25)},
		inds: inds,
		pats: pats,
	}
	svc := newTestService(store, Config{Timeframe: "1day", ConfidenceOverride: -1})

	outcome, err := svc.AnalyzeSymbol(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatalf("outcome not successful: %s", outcome.Err)
	}
	if outcome.Bars != 40 {
		t.Errorf("Bars=%d, want 40", outcome.Bars)
	}
	if outcome.Indicators != 2 {
		t.Errorf("Indicators=%d, want 2", outcome.Indicators)
	}
	if outcome.RunID == "" {
		t.Error("expected a run ID")
	}

	nr, nd := store.counts()
	if nr != 2 {
		t.Errorf("persisted %d indicator rows, want 2", nr)
	}
	if nd == 0 || nd != outcome.Detections {
		t.Errorf("persisted %d detections, outcome says %d", nd, outcome.Detections)
	}
	for _, r := range store.results {
		if r.RunID != outcome.RunID {
			t.Errorf("indicator row run_id=%q, want %q", r.RunID, outcome.RunID)
		}
	}
	for _, d := range store.detections {
		if d.Confidence < 0.5 {
			t.Errorf("persisted detection below threshold: %.4f", d.Confidence)
		}
	}
}

func TestAnalyzeSymbol_NoHistoryFails(t *testing.T) {
	inds, pats := defaultTestCatalog()
	store := &fakeStore{bars: map[string][]model.Bar{}, inds: inds, pats: pats}
	svc := newTestService(store, Config{Timeframe: "1day"})

	outcome, err := svc.AnalyzeSymbol(context.Background(), "GHOST")
	if err == nil {
		t.Fatal("expected error for empty history")
	}
	if outcome.Succeeded() {
		t.Error("outcome must record the failure")
	}
	if nr, nd := store.counts(); nr != 0 || nd != 0 {
		t.Errorf("failed run persisted %d/%d rows", nr, nd)
	}
}

func TestAnalyzeSymbol_TimeoutPersistsNothing(t *testing.T) {
	inds, pats := defaultTestCatalog()
	store := &fakeStore{
		bars:  map[string][]model.Bar{"SLOW": testBars("SLOW", 40)},
		block: map[string]bool{"SLOW": true},
		inds:  inds,
		pats:  pats,
	}
	svc := newTestService(store, Config{Timeframe: "1day", SymbolTimeout: 30 * time.Millisecond})

	outcome, err := svc.AnalyzeSymbol(context.Background(), "SLOW")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if outcome.Succeeded() {
		t.Error("timed-out run must not read as success")
	}
	if nr, nd := store.counts(); nr != 0 || nd != 0 {
		t.Errorf("timed-out run persisted %d/%d rows", nr, nd)
	}
}

func TestAnalyzeSymbol_ComponentFailureIsolation(t *testing.T) {
	// One unresolvable indicator alongside a valid one: the run commits,
	// records the failure, and keeps the sibling's output.
	inds := []model.IndicatorDefinition{
		{Name: "super_trend", Impl: "supertrend", Params: model.Params{}, Enabled: true},
		{Name: "sma_20", Impl: "sma", Params: model.Params{"period": 20}, Enabled: true},
	}
	store := &fakeStore{
		bars: map[string][]model.Bar{"AAA": testBars("AAA", 40)},
		inds: inds,
	}
	svc := newTestService(store, Config{Timeframe: "1day"})

	outcome, err := svc.AnalyzeSymbol(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatalf("run should commit despite a component failure: %s", outcome.Err)
	}
	if outcome.Clean() {
		t.Error("run with failures must not read as clean")
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Component != "super_trend" {
		t.Errorf("Failures=%+v, want one super_trend entry", outcome.Failures)
	}
	if outcome.Indicators != 1 {
		t.Errorf("Indicators=%d, want 1", outcome.Indicators)
	}
}

func TestAnalyzeSymbol_InsufficientHistoryIsComponentLevel(t *testing.T) {
	// 10 bars: sma_20 and rsi_14 both refuse, but the symbol still commits
	// (with zero indicator rows) rather than failing outright.
	inds, _ := defaultTestCatalog()
	store := &fakeStore{
		bars: map[string][]model.Bar{"AAA": testBars("AAA", 10)},
		inds: inds,
	}
	svc := newTestService(store, Config{Timeframe: "1day"})

	outcome, err := svc.AnalyzeSymbol(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if !outcome.Succeeded() || outcome.Clean() {
		t.Errorf("want committed-but-unclean run, got ok=%v clean=%v", outcome.Succeeded(), outcome.Clean())
	}
	if len(outcome.Failures) != 2 {
		t.Errorf("Failures=%d, want 2", len(outcome.Failures))
	}
}

func TestAnalyzeSymbol_ConfidenceOverrideFilters(t *testing.T) {
	inds, pats := defaultTestCatalog()
	bars := withDoji(testBars("AAA", 40), 25) // doji confidence 0.75
	store := &fakeStore{
		bars: map[string][]model.Bar{"AAA": bars},
		inds: inds,
		pats: pats,
	}
	// Override above every achievable confidence: nothing persists.
	svc := newTestService(store, Config{Timeframe: "1day", ConfidenceOverride: 0.99})

	outcome, err := svc.AnalyzeSymbol(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if outcome.Detections != 0 {
		t.Errorf("Detections=%d, want 0 under a 0.99 override", outcome.Detections)
	}
	if _, nd := store.counts(); nd != 0 {
		t.Errorf("store received %d filtered detections", nd)
	}
}

// ────────────────────────────────────────────────────────────
// AnalyzeUniverse
// ────────────────────────────────────────────────────────────

func TestAnalyzeUniverse_OneTimeoutDoesNotAbortBatch(t *testing.T) {
	inds, pats := defaultTestCatalog()
	store := &fakeStore{
		bars: map[string][]model.Bar{
			"AAA": withDoji(testBars("AAA", 40), 25),
			"BBB": testBars("BBB", 40),
		},
		block: map[string]bool{"BBB": true},
		inds:  inds,
		pats:  pats,
	}
	svc := newTestService(store, Config{
		Timeframe:     "1day",
		Workers:       2,
		SymbolTimeout: 30 * time.Millisecond,
	})

	batch := svc.AnalyzeUniverse(context.Background(), []string{"AAA", "BBB"})

	if batch.Succeeded != 1 || batch.Failed != 1 {
		t.Fatalf("batch counts %d/%d, want 1 succeeded, 1 failed", batch.Succeeded, batch.Failed)
	}
	aaa := batch.Outcome("AAA")
	if aaa == nil || !aaa.Succeeded() {
		t.Error("AAA should commit despite BBB's timeout")
	}
	bbb := batch.Outcome("BBB")
	if bbb == nil || bbb.Succeeded() {
		t.Error("BBB should record its timeout")
	}
	if nr, _ := store.counts(); nr == 0 {
		t.Error("AAA's indicator rows should have been persisted")
	}
}

func TestAnalyzeUniverse_PreservesRequestOrder(t *testing.T) {
	inds, _ := defaultTestCatalog()
	store := &fakeStore{
		bars: map[string][]model.Bar{
			"AAA": testBars("AAA", 40),
			"BBB": testBars("BBB", 40),
			"CCC": testBars("CCC", 40),
		},
		inds: inds,
	}
	svc := newTestService(store, Config{Timeframe: "1day", Workers: 3})

	batch := svc.AnalyzeUniverse(context.Background(), []string{"AAA", "BBB", "CCC"})

	want := []string{"AAA", "BBB", "CCC"}
	for i, w := range want {
		if batch.Symbols[i] == nil || batch.Symbols[i].Symbol != w {
			t.Errorf("Symbols[%d]=%v, want %s", i, batch.Symbols[i], w)
		}
	}
	if batch.RunID == "" {
		t.Error("expected a batch run ID")
	}
	for _, o := range batch.Symbols {
		if o.RunID == batch.RunID {
			t.Error("per-symbol run IDs must be distinct from the batch's")
		}
	}
}

func TestAnalyzeUniverse_EmptyUniverse(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, Config{Timeframe: "1day"})

	batch := svc.AnalyzeUniverse(context.Background(), nil)
	if batch.Succeeded != 0 || batch.Failed != 0 || len(batch.Symbols) != 0 {
		t.Errorf("empty universe gave %+v", batch)
	}
}

// ────────────────────────────────────────────────────────────
// runBuffer / definitionCache
// ────────────────────────────────────────────────────────────

func TestRunBuffer_FlushWritesStagedRows(t *testing.T) {
	buf := newRunBuffer()
	store := &fakeStore{}

	v := 42.0
	buf.StoreIndicatorResult(context.Background(), &model.IndicatorResult{Indicator: "sma_20", Value: &v})
	buf.StorePatternDetection(context.Background(), &model.PatternDetection{Pattern: "doji", Confidence: 0.8})

	if nr, nd := store.counts(); nr != 0 || nd != 0 {
		t.Fatalf("staged rows reached the store before flush: %d/%d", nr, nd)
	}
	if err := buf.Flush(context.Background(), store); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if nr, nd := store.counts(); nr != 1 || nd != 1 {
		t.Errorf("flushed %d/%d rows, want 1/1", nr, nd)
	}
}

func TestDefinitionCache_RefreshesAfterInvalidate(t *testing.T) {
	store := &fakeStore{
		inds: []model.IndicatorDefinition{{Name: "sma_20", Impl: "sma", Enabled: true}},
	}
	cache := newDefinitionCache(store, "1day", time.Hour)

	inds, err := cache.Indicators(context.Background())
	if err != nil {
		t.Fatalf("Indicators: %v", err)
	}
	if len(inds) != 1 {
		t.Fatalf("got %d definitions, want 1", len(inds))
	}

	// Catalog edit is invisible until invalidation.
	store.inds = append(store.inds, model.IndicatorDefinition{Name: "rsi_14", Impl: "rsi", Enabled: true})
	inds, _ = cache.Indicators(context.Background())
	if len(inds) != 1 {
		t.Errorf("stale read returned %d definitions, want 1", len(inds))
	}

	cache.Invalidate()
	inds, _ = cache.Indicators(context.Background())
	if len(inds) != 2 {
		t.Errorf("post-invalidate read returned %d definitions, want 2", len(inds))
	}
}
