package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueriesTotal.WithLabelValues("india", "topic"))

	RecordQuery(&storage.QueryRecord{
		Region:   "india",
		Outcome:  storage.OutcomeTopic,
		Duration: 2 * time.Second,
	})
	RecordQuery(nil)

	after := testutil.ToFloat64(QueriesTotal.WithLabelValues("india", "topic"))
	if after-before != 1 {
		t.Errorf("expected queries counter to grow by 1, grew by %v", after-before)
	}
}

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues(SearchQuota))

	RecordSearch(SearchQuota, 2000)

	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues(SearchQuota)) - before; got != 1 {
		t.Errorf("expected 1 quota_exceeded search, got %v", got)
	}
	if got := testutil.ToFloat64(SearchQuotaUsed); got != 2000 {
		t.Errorf("expected quota gauge 2000, got %v", got)
	}
}

func TestRecordMaterialized(t *testing.T) {
	gen := testutil.ToFloat64(TopicsMaterializedTotal.WithLabelValues("generated"))
	skip := testutil.ToFloat64(TopicsMaterializedTotal.WithLabelValues("skipped"))

	RecordMaterialized(3, 2, 0)

	if got := testutil.ToFloat64(TopicsMaterializedTotal.WithLabelValues("generated")) - gen; got != 3 {
		t.Errorf("expected 3 generated, got %v", got)
	}
	if got := testutil.ToFloat64(TopicsMaterializedTotal.WithLabelValues("skipped")) - skip; got != 2 {
		t.Errorf("expected 2 skipped, got %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	RecordGeneration("latam", false)
	RecordQuery(&storage.QueryRecord{Region: "latam", Outcome: storage.OutcomeNoTopic, Duration: time.Second})

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	if !strings.Contains(output, `dogbook_generations_total{kind="latam",result="rejected"}`) {
		t.Errorf("expected dogbook_generations_total metric for latam")
	}
	if !strings.Contains(output, `dogbook_query_duration_seconds_bucket`) {
		t.Errorf("expected dogbook_query_duration_seconds metric")
	}
}
