package collectors

import (
	"context"
	"testing"

	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi/uapitest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"
)

func TestFormatFTPAccount_MegabytesToBytes(t *testing.T) {
	cases := map[string]int64{
		"2.5":  2621440,
		"0":    0,
		"1":    1048576,
		"0.1":  104858,
		"1024": 1073741824,
	}

	for input, want := range cases {
		lines, err := FormatFTPAccount(uapi.FTPAccount{Login: "ftp@example.com", DiskUsed: uapi.StringScalar(input)}, exposition.LabelSet{})
		if err != nil {
			t.Fatalf("%s: %v", input, err)
		}
		if got := lines[0].Value; !got.IsInteger() || int64(got.Float64()) != want {
			t.Fatalf("%s: got %s want %d", input, got, want)
		}
	}
}

func TestFormatMailbox(t *testing.T) {
	labels := exposition.NewLabelSet(exposition.Label{Name: "user", Value: "alice"})

	lines, err := FormatMailbox(uapi.Mailbox{Email: "info@example.com", DiskUsed: uapi.StringScalar("2048")}, labels)
	if err != nil {
		t.Fatalf("FormatMailbox() error: %v", err)
	}
	want := "cpanel_email_disk_usage{email=\"info@example.com\",user=\"alice\"} 2048\n"
	if got := renderLines(lines); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	if _, err := FormatMailbox(uapi.Mailbox{Email: "x@example.com", DiskUsed: uapi.StringScalar("lots")}, labels); err == nil {
		t.Fatalf("expected error for non-integer disk usage")
	}
}

func TestDatabaseFormatter_Passthrough(t *testing.T) {
	labels := exposition.NewLabelSet(exposition.Label{Name: "user", Value: "alice"})
	format := databaseFormatter(mysqlDiskUsageMetric)

	lines, err := format(uapi.Database{Database: "alice_wp", DiskUsage: uapi.NumberScalar(123456)}, labels)
	if err != nil {
		t.Fatalf("format error: %v", err)
	}
	want := "cpanel_mysql_db_disk_usage{db=\"alice_wp\",user=\"alice\"} 123456\n"
	if got := renderLines(lines); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	if _, err := format(uapi.Database{Database: "alice_empty"}, labels); err == nil {
		t.Fatalf("expected error for missing disk usage")
	}
}

func TestCategory_FeatureUnavailableYieldsNoLines(t *testing.T) {
	env := newTestEnv(t)
	env.executor.SetErrors("Mysql", "list_databases", `You do not have the feature "mysql".`)

	lines := NewMySQLCollector(env.deps).CollectLines(context.Background(), env.scrape())

	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
	warnings := env.logs.FilterMessage("Feature unavailable").FilterLevelExact(zapcore.WarnLevel)
	if warnings.Len() != 1 {
		t.Fatalf("expected one warning, got %d", warnings.Len())
	}
	failures := env.deps.Metrics.categoryFailures.WithLabelValues("mysql", uapi.OutcomeFeatureUnavailable)
	if got := testutil.ToFloat64(failures); got != 1 {
		t.Fatalf("unexpected failure count: %v", got)
	}
}

func TestCategory_TransportErrorIsLocal(t *testing.T) {
	env := newTestEnv(t)
	env.executor.Set("Ftp", "list_ftp_with_disk", uapitest.Response{
		Stdout: uapitest.Envelope(1, nil, []any{}),
		Stderr: "cpanel: account suspended",
	})

	lines := NewFTPCollector(env.deps).CollectLines(context.Background(), env.scrape())

	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
	if env.logs.FilterMessage("Failed to fetch category").FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatalf("expected transport error to be logged")
	}
}

func TestCategory_NullDataYieldsNoLines(t *testing.T) {
	env := newTestEnv(t)
	env.executor.SetData("Email", "list_pops_with_disk", nil)

	if lines := NewEmailCollector(env.deps).CollectLines(context.Background(), env.scrape()); len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}

func TestCategory_SkipsBadRecords(t *testing.T) {
	env := newTestEnv(t)
	env.executor.SetData("Email", "list_pops_with_disk", []map[string]any{
		{"email": "info@example.com", "_diskused": "2048"},
		{"email": "broken@example.com", "_diskused": "n/a"},
		{"email": "sales@example.com", "_diskused": "0"},
	})

	lines := NewEmailCollector(env.deps).CollectLines(context.Background(), env.scrape())

	want := "cpanel_email_disk_usage{email=\"info@example.com\",user=\"alice\"} 2048\n" +
		"cpanel_email_disk_usage{email=\"sales@example.com\",user=\"alice\"} 0\n"
	if got := renderLines(lines); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if got := testutil.ToFloat64(env.deps.Metrics.categoryLines.WithLabelValues("email")); got != 2 {
		t.Fatalf("unexpected line gauge: %v", got)
	}
}
