package catalog

import (
	"context"
	"errors"
	"siiau-backend/internal/telemetry"
	libcatalog "siiau-backend/lib/catalog"
	"siiau-backend/lib/scrapers/siiau"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const offeringPage = `<html><body>
<table>
	<tr><th>NRC</th><th>Clave</th></tr>
	<tr><td>CUCEI</td><td>216502</td><td>IL340</td><td>Intro to Systems</td><td>D</td><td>4</td><td>40</td><td>3</td>
		<td><table><tr><td>01</td><td>0700-0855</td><td>. M . J . .</td><td>DEDX</td><td>A003</td><td>16/01/25 - 31/05/25</td></tr></table></td>
		<td><table><tr><td>01</td><td>PEREZ LOPEZ, JUAN</td></tr></table></td></tr>
	<tr><td>CUCEI</td><td>216503</td><td>IL340</td><td>Intro to Systems</td><td>E</td><td>4</td><td>40</td><td>0</td></tr>
	<tr><td>CUCEI</td><td>216504</td><td>IL341</td><td>Broken</td><td>F</td></tr>
	<tr><td>CUCEI</td><td>216510</td><td>I5288</td><td>Calculo</td><td>D</td><td>8</td><td>30</td><td>12</td></tr>
</table>
</body></html>`

type fakeFetcher struct {
	mutex sync.Mutex
	body  []byte
	err   error
	calls atomic.Int64
	// gate, when set, blocks every fetch until it is closed
	gate chan struct{}
}

func (f *fakeFetcher) set(body string, err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.body = []byte(body)
	f.err = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, req siiau.FetchRequest) ([]byte, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.body, f.err
}

func newTestService(fetcher siiau.Fetcher, tel telemetry.API) *Service {
	return NewService(ServiceOptions{
		Fetcher:    fetcher,
		Request:    siiau.FetchRequest{Term: "202520", Major: "ICOM"},
		Curriculum: libcatalog.Curriculum{"primero": {"I5288", "IL340"}},
		Telemetry:  tel,
	})
}

func ids(sections []libcatalog.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.ID
	}
	return out
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	tel := &telemetry.Recorder{}
	fetcher := &fakeFetcher{}
	fetcher.set(offeringPage, nil)
	service := newTestService(fetcher, tel)

	require.Equal(t, 0, service.Snapshot().Len())

	res, err := service.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Sections)
	require.Equal(t, 1, res.Tables)
	require.True(t, res.Changed)
	require.False(t, res.Empty)

	require.Len(t, tel.Reports("warning", "build.malformed-record"), 1)
	require.Empty(t, tel.Reports("warning", report_table_count))

	require.Equal(t, []string{"216502", "216503"}, ids(service.Resolve(libcatalog.Single("IL340"))))
	require.Equal(t, []string{"216510", "216502", "216503"}, ids(service.Resolve(libcatalog.Single("primero"))))
	require.Equal(t, []string{"216510"}, ids(service.Search("calc", 10)))

	section, ok := service.Snapshot().Section("216502")
	require.True(t, ok)
	require.Equal(t, "PEREZ LOPEZ, JUAN", section.Instructor())
	require.Equal(t, "16/01/25 - 31/05/25", section.Schedules[0].Period)

	again, err := service.Refresh(context.Background())
	require.NoError(t, err)
	require.False(t, again.Changed)
	require.Equal(t, res.Digest, again.Digest)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	tel := &telemetry.Recorder{}
	fetcher := &fakeFetcher{}
	fetcher.set(offeringPage, nil)
	service := newTestService(fetcher, tel)

	_, err := service.Refresh(context.Background())
	require.NoError(t, err)
	published := service.Snapshot()

	fetcher.set("", siiau.ErrTransport)
	_, err = service.Refresh(context.Background())
	require.ErrorIs(t, err, siiau.ErrTransport)
	require.Same(t, published, service.Snapshot())
	require.Len(t, tel.Reports("broken", report_fetch), 1)
}

func TestRefreshEmptyDocument(t *testing.T) {
	tel := &telemetry.Recorder{}
	fetcher := &fakeFetcher{}
	fetcher.set(offeringPage, nil)
	service := newTestService(fetcher, tel)

	_, err := service.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, service.Snapshot().Len())

	fetcher.set("<html><body><p>Sin resultados</p></body></html>", nil)
	res, err := service.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, res.Empty)
	require.True(t, res.Changed)
	require.Equal(t, 0, service.Snapshot().Len())
	require.Len(t, tel.Reports("warning", report_empty_document), 1)
}

func TestRefreshTableCountMismatch(t *testing.T) {
	tel := &telemetry.Recorder{}
	fetcher := &fakeFetcher{}
	// an html5 parser closes the first table when it sees a table start tag
	// directly inside a row, the extractor nests it instead
	fetcher.set(`<table><tr><td>a</td><table><tr><td>b</td></tr></table></tr></table>`, nil)
	service := newTestService(fetcher, tel)

	res, err := service.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Tables)
	require.Len(t, tel.Reports("warning", report_table_count), 1)
}

func TestRefreshSharesConcurrentFetches(t *testing.T) {
	fetcher := &fakeFetcher{gate: make(chan struct{})}
	fetcher.set(offeringPage, nil)
	service := newTestService(fetcher, &telemetry.Recorder{})

	var wg sync.WaitGroup
	results := make([]RefreshResult, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := service.Refresh(context.Background())
			if err == nil {
				results[i] = res
			}
		}()
	}

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, time.Second, time.Millisecond*5)
	// give the other callers time to join the in-flight refresh
	time.Sleep(time.Millisecond * 100)
	close(fetcher.gate)
	wg.Wait()

	require.Equal(t, int64(1), fetcher.calls.Load())
	for _, res := range results {
		require.Equal(t, 3, res.Sections)
	}
}

func TestReadersDuringRefresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(offeringPage, nil)
	service := newTestService(fetcher, &telemetry.Recorder{})
	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snapshot := service.Snapshot()
				// a published snapshot is always complete
				if snapshot.Len() != 3 {
					t.Errorf("got partial snapshot with %d sections", snapshot.Len())
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		_, err := service.Refresh(context.Background())
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &fakeFetcher{}
	fetcher.set(offeringPage, nil)
	service := NewService(ServiceOptions{
		Fetcher:   fetcher,
		Request:   siiau.FetchRequest{Term: "202520"},
		Interval:  time.Millisecond * 10,
		Telemetry: &telemetry.Recorder{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		service.Run(ctx, true)
	}()

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 3
	}, time.Second*5, time.Millisecond*5)
	require.Equal(t, 3, service.Snapshot().Len())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSurvivesFailures(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set("", errors.Join(siiau.ErrTransport, errors.New("connection refused")))
	tel := &telemetry.Recorder{}
	service := NewService(ServiceOptions{
		Fetcher:   fetcher,
		Interval:  time.Millisecond * 10,
		Telemetry: tel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.Run(ctx, true)

	require.Eventually(t, func() bool {
		return len(tel.Reports("broken", report_fetch)) >= 2
	}, time.Second*5, time.Millisecond*5)
	require.Equal(t, 0, service.Snapshot().Len())
}
