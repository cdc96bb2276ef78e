package sharedtest

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

// TestMetricsExporter accumulates OpenCensus view data for tests. It deaggregates the view data to make
// it easier to test for a specific row that we expect to see.
type TestMetricsExporter struct {
	dataCh   chan TestMetricsData
	lastData TestMetricsData
	lock     sync.Mutex
}

// TestMetricsData is a map of OpenCensus view names to row data.
type TestMetricsData map[string][]TestMetricsRow

// HasRow returns true if this row exists for the specified view name.
func (d TestMetricsData) HasRow(viewName string, expectedRow TestMetricsRow) bool {
	for _, r := range d[viewName] {
		if reflect.DeepEqual(r, expectedRow) {
			return true
		}
	}
	return false
}

// TestMetricsRow is a simplified version of an OpenCensus view row. For distribution views, Count and
// Sum are the distribution's count and sum; for last-value views, Sum is the last value.
type TestMetricsRow struct {
	Tags  map[string]string
	Count int64
	Sum   float64
}

// NewTestMetricsExporter creates a TestMetricsExporter.
func NewTestMetricsExporter() *TestMetricsExporter {
	return &TestMetricsExporter{
		dataCh:   make(chan TestMetricsData, 100),
		lastData: make(TestMetricsData),
	}
}

// WithExporter registers the exporter, then calls the function, then unregisters the exporter. It also
// shortens the OpenCensus reporting period so that data is exported promptly.
func (e *TestMetricsExporter) WithExporter(fn func()) {
	view.SetReportingPeriod(time.Millisecond * 10)
	view.RegisterExporter(e)
	defer view.UnregisterExporter(e)
	fn()
}

// ExportView is called by OpenCensus.
func (e *TestMetricsExporter) ExportView(viewData *view.Data) {
	e.lock.Lock()
	defer e.lock.Unlock()

	viewName := viewData.View.Name
	rows := []TestMetricsRow{}
	for _, vr := range viewData.Rows {
		tr := TestMetricsRow{Tags: make(map[string]string, len(vr.Tags))}
		for _, t := range vr.Tags {
			tr.Tags[t.Key.Name()] = t.Value
		}
		switch data := vr.Data.(type) {
		case *view.SumData:
			tr.Sum = data.Value
		case *view.CountData:
			tr.Count = data.Value
		case *view.LastValueData:
			tr.Sum = data.Value
		case *view.DistributionData:
			tr.Count = data.Count
			tr.Sum = data.Sum()
		}
		rows = append(rows, tr)
	}

	if !reflect.DeepEqual(rows, e.lastData[viewName]) {
		e.lastData[viewName] = rows
		dataCopy := make(TestMetricsData)
		for k, v := range e.lastData {
			dataCopy[k] = v
		}
		select {
		case e.dataCh <- dataCopy:
		default:
		}
	}
}

// AwaitData waits until matching view data is received.
func (e *TestMetricsExporter) AwaitData(t *testing.T, timeout time.Duration, loggers ldlog.Loggers, fn func(TestMetricsData) bool) {
	deadline := time.After(timeout)
	for {
		select {
		case d := <-e.dataCh:
			loggers.Infof("exporter got metrics: %+v", d)
			if fn(d) {
				return
			}
		case <-deadline:
			require.Fail(t, "timed out waiting for metrics data")
			return
		}
	}
}
