package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jcleary/barharvest/internal/broker"
	"github.com/jcleary/barharvest/internal/config"
	"github.com/jcleary/barharvest/internal/connection"
	"github.com/jcleary/barharvest/internal/econ"
	"github.com/jcleary/barharvest/internal/model"
	"github.com/jcleary/barharvest/internal/store"
)

// fakeGateway serves canned bars per symbol.
type fakeGateway struct {
	bars       map[string][]broker.Bar
	resolveErr map[string]error
	connected  bool
}

func (g *fakeGateway) Connect(ctx context.Context) error {
	g.connected = true
	return nil
}

func (g *fakeGateway) ResolveContract(ctx context.Context, spec broker.ContractSpec) (broker.Contract, error) {
	if err := g.resolveErr[spec.Symbol]; err != nil {
		return broker.Contract{}, err
	}
	return broker.Contract{ConID: 1, Symbol: spec.Symbol, SecType: spec.SecType}, nil
}

func (g *fakeGateway) HistoricalBars(ctx context.Context, contract broker.Contract, req broker.BarRequest) ([]broker.Bar, error) {
	return g.bars[contract.Symbol], nil
}

func (g *fakeGateway) Close() error {
	g.connected = false
	return nil
}

func (g *fakeGateway) IsConnected() bool { return g.connected }

// fakeConn hands out a fakeGateway and records lifecycle calls.
type fakeConn struct {
	gw          connection.Gateway
	connectErr  error
	connects    int
	disconnects int
}

func (c *fakeConn) Connect(ctx context.Context) error {
	c.connects++
	return c.connectErr
}

func (c *fakeConn) Disconnect() error {
	c.disconnects++
	return nil
}

func (c *fakeConn) Gateway() connection.Gateway { return c.gw }

// fakeStore records writes in memory. The persist loop is sequential, so
// plain fields suffice.
type fakeStore struct {
	schemaErr error
	schemas   int
	writes    map[string][]model.DataPoint
	writeErr  map[string]error
	closes    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{writes: map[string][]model.DataPoint{}}
}

func (s *fakeStore) EnsureSchema(ctx context.Context) error {
	s.schemas++
	return s.schemaErr
}

func (s *fakeStore) WriteBars(ctx context.Context, symbol string, points []model.DataPoint) (store.WriteStats, error) {
	if err := s.writeErr[symbol]; err != nil {
		return store.WriteStats{}, err
	}
	s.writes[symbol] = points
	return store.WriteStats{Inserted: len(points)}, nil
}

func (s *fakeStore) Close() error {
	s.closes++
	return nil
}

// stubEcon serves canned rate observations.
type stubEcon struct {
	observations []econ.Observation
}

func (e *stubEcon) GetForecast(ctx context.Context, frequency string) (*econ.ForecastResponse, error) {
	return &econ.ForecastResponse{}, nil
}

func (e *stubEcon) GetObservations(ctx context.Context, seriesID string) (*econ.ObservationsResponse, error) {
	return &econ.ObservationsResponse{Observations: e.observations}, nil
}

func testConfig() *config.HarvesterConfig {
	cfg := &config.HarvesterConfig{}
	cfg.Sources.Equities = []string{"AAA", "BBB"}
	cfg.Fetch.Duration = "1 Y"
	cfg.Fetch.BarSize = "1 day"
	cfg.Fetch.MaxAttempts = 1
	cfg.Fetch.Backoff = time.Millisecond
	cfg.Fetch.Concurrency = 2
	cfg.Storage.Driver = "sqlite"
	return cfg
}

func testRunner(cfg *config.HarvesterConfig, conn *fakeConn, st *fakeStore) *Runner {
	r := NewRunner(cfg, nil)
	r.conn = conn
	r.openStore = func(ctx context.Context) (store.Store, error) { return st, nil }
	r.econ = &stubEcon{}
	return r
}

func TestRun_EndToEnd(t *testing.T) {
	gw := &fakeGateway{bars: map[string][]broker.Bar{
		"AAA": {
			{Date: "2026-08-21", Close: 101.5, Volume: 1200},
			{Date: "2026-08-22", Close: 102.25, Volume: 900},
			{Date: "2026-08-25", Close: 103.0, Volume: 1100},
		},
		// BBB returns no bars.
	}}
	conn := &fakeConn{gw: gw}
	st := newFakeStore()

	cfg := testConfig()
	cfg.Sources.Economic.RateSeries = []string{"DGS10"}

	r := testRunner(cfg, conn, st)
	r.econ = &stubEcon{observations: []econ.Observation{{Date: "2026-08-21", Value: "4.1"}}}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.RunID == "" {
		t.Error("report carries no run ID")
	}
	if report.Requested != 3 {
		t.Errorf("Requested = %d, want 3", report.Requested)
	}
	if report.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", report.Succeeded)
	}
	if report.Empty != 1 {
		t.Errorf("Empty = %d, want 1", report.Empty)
	}
	if report.Failed != 0 {
		t.Errorf("Failed = %d, want 0", report.Failed)
	}
	if report.RowsWritten != 4 {
		t.Errorf("RowsWritten = %d, want 4", report.RowsWritten)
	}

	if got := st.writes["AAA"]; len(got) != 3 {
		t.Fatalf("AAA rows persisted = %d, want 3", len(got))
	}
	if got := st.writes["DGS10"]; len(got) != 1 || got[0].Close != 4.1 {
		t.Errorf("DGS10 rows persisted = %+v, want one row at 4.1", got)
	}
	if _, ok := st.writes["BBB"]; ok {
		t.Error("empty source BBB must not reach the store")
	}

	if conn.connects != 1 || conn.disconnects != 1 {
		t.Errorf("connects/disconnects = %d/%d, want 1/1", conn.connects, conn.disconnects)
	}
	if st.schemas != 1 || st.closes != 1 {
		t.Errorf("schemas/closes = %d/%d, want 1/1", st.schemas, st.closes)
	}
}

func TestRun_ConnectFailureCleansUp(t *testing.T) {
	conn := &fakeConn{connectErr: connection.ErrConnectFailed}
	st := newFakeStore()
	r := testRunner(testConfig(), conn, st)

	_, err := r.Run(context.Background())
	if !errors.Is(err, connection.ErrConnectFailed) {
		t.Fatalf("err = %v, want ErrConnectFailed", err)
	}

	if len(st.writes) != 0 {
		t.Errorf("store received %d writes, want none", len(st.writes))
	}
	// Both handles are released even though the run went nowhere.
	if conn.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", conn.disconnects)
	}
	if st.closes != 1 {
		t.Errorf("closes = %d, want 1", st.closes)
	}
}

func TestRun_SourceFailureIsolation(t *testing.T) {
	gw := &fakeGateway{
		bars: map[string][]broker.Bar{
			"AAA": {{Date: "2026-08-22", Close: 55, Volume: 10}},
		},
		resolveErr: map[string]error{
			"BBB": errors.New("no such instrument"),
		},
	}
	conn := &fakeConn{gw: gw}
	st := newFakeStore()
	r := testRunner(testConfig(), conn, st)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("Succeeded/Failed = %d/%d, want 1/1", report.Succeeded, report.Failed)
	}
	if _, ok := st.writes["AAA"]; !ok {
		t.Error("AAA rows missing from store despite BBB failing")
	}
	if _, ok := st.writes["BBB"]; ok {
		t.Error("failed source BBB must not reach the store")
	}
	if conn.disconnects != 1 || st.closes != 1 {
		t.Errorf("disconnects/closes = %d/%d, want 1/1", conn.disconnects, st.closes)
	}
}

func TestRun_PersistFailureKeepsGoing(t *testing.T) {
	gw := &fakeGateway{bars: map[string][]broker.Bar{
		"AAA": {{Date: "2026-08-22", Close: 55, Volume: 10}},
		"BBB": {{Date: "2026-08-22", Close: 66, Volume: 20}},
	}}
	conn := &fakeConn{gw: gw}
	st := newFakeStore()
	st.writeErr = map[string]error{"AAA": errors.New("disk full")}
	r := testRunner(testConfig(), conn, st)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2 (persistence does not rewrite fetch outcomes)", report.Succeeded)
	}
	if report.PersistFailed != 1 {
		t.Errorf("PersistFailed = %d, want 1", report.PersistFailed)
	}
	if report.RowsWritten != 1 {
		t.Errorf("RowsWritten = %d, want 1", report.RowsWritten)
	}
	if _, ok := st.writes["BBB"]; !ok {
		t.Error("BBB rows missing from store despite AAA's persist failure")
	}
}

func TestRun_BadSourceListFailsBeforeAnySideEffect(t *testing.T) {
	cfg := testConfig()
	cfg.Sources.Equities = []string{"AAA", "AAA"}

	conn := &fakeConn{}
	st := newFakeStore()
	r := testRunner(cfg, conn, st)

	var opened bool
	r.openStore = func(ctx context.Context) (store.Store, error) {
		opened = true
		return st, nil
	}

	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "duplicate source symbol") {
		t.Fatalf("err = %v, want duplicate source rejection", err)
	}
	if opened {
		t.Error("store opened despite bad source list")
	}
	if conn.connects != 0 {
		t.Errorf("connects = %d, want 0", conn.connects)
	}
}

func TestRun_StoreOpenFailure(t *testing.T) {
	conn := &fakeConn{}
	st := newFakeStore()
	r := testRunner(testConfig(), conn, st)
	r.openStore = func(ctx context.Context) (store.Store, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "open store") {
		t.Fatalf("err = %v, want open store failure", err)
	}
	if conn.connects != 0 {
		t.Errorf("connects = %d, want 0 (storage comes first)", conn.connects)
	}
	if conn.disconnects != 0 {
		t.Errorf("disconnects = %d, want 0 (nothing to release)", conn.disconnects)
	}
}

func TestRun_SchemaFailureCleansUp(t *testing.T) {
	conn := &fakeConn{}
	st := newFakeStore()
	st.schemaErr = errors.New("permission denied")
	r := testRunner(testConfig(), conn, st)

	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ensure schema") {
		t.Fatalf("err = %v, want schema failure", err)
	}
	if conn.connects != 0 {
		t.Errorf("connects = %d, want 0 (schema precedes connect)", conn.connects)
	}
	if st.closes != 1 {
		t.Errorf("closes = %d, want 1", st.closes)
	}
}

func TestRun_InterruptedRunReportsError(t *testing.T) {
	gw := &fakeGateway{bars: map[string][]broker.Bar{
		"AAA": {{Date: "2026-08-22", Close: 55, Volume: 10}},
	}}
	conn := &fakeConn{gw: gw}
	st := newFakeStore()
	r := testRunner(testConfig(), conn, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report.Failed != report.Requested {
		t.Errorf("Failed = %d, want all %d sources", report.Failed, report.Requested)
	}
	// Interruption still releases both handles.
	if conn.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", conn.disconnects)
	}
	if st.closes != 1 {
		t.Errorf("closes = %d, want 1", st.closes)
	}
}

func TestBuildRequests(t *testing.T) {
	sources := []model.DataSource{
		{Symbol: "AAA", Kind: model.KindEquity},
		{Symbol: "EURUSD", Kind: model.KindForex},
	}
	fetchCfg := config.FetchConfig{MaxAttempts: 7, Backoff: 3 * time.Second}

	reqs := buildRequests(sources, fetchCfg)
	if len(reqs) != 2 {
		t.Fatalf("len(reqs) = %d, want 2", len(reqs))
	}
	for _, req := range reqs {
		if req.MaxAttempts != 7 || req.Backoff != 3*time.Second {
			t.Errorf("%s request policy = %d/%v, want 7/3s", req.Source.Symbol, req.MaxAttempts, req.Backoff)
		}
	}
}

func TestReportSummary(t *testing.T) {
	rep := Report{
		Requested:   5,
		Succeeded:   3,
		Empty:       1,
		Failed:      1,
		RowsWritten: 750,
		RowsSkipped: 12,
		Elapsed:     2 * time.Second,
	}
	got := rep.Summary()
	for _, want := range []string{"requested=5", "succeeded=3", "failed=1", "rows_written=750"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
}
