package alert_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/manzanit0/studymap/pkg/alert"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := alert.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	n.Fire(context.Background(), alert.Alert{Title: "네트워크 에러", Text: "timeout", Severity: alert.SeverityError})

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unexpected log output %q: %s", buf.String(), err.Error())
	}

	if record["level"] != "ERROR" || record["msg"] != "네트워크 에러" || record["alert.text"] != "timeout" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestLogNotifierRecover(t *testing.T) {
	var buf bytes.Buffer
	n := alert.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	func() {
		defer n.Recover(context.Background())
		panic("kaboom")
	}()

	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("expected the panic to be logged, got %q", buf.String())
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got alert.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := alert.NewWebhookNotifier(srv.Client(), srv.URL)
	n.Fire(context.Background(), alert.Alert{Title: "위치 정보 에러", Text: "denied", Severity: alert.SeverityError})

	want := alert.Alert{Title: "위치 정보 에러", Text: "denied", Severity: alert.SeverityError, ConfirmText: "확인"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("alert mismatch (-want +got):\n%s", diff)
	}
}

type recorder struct {
	fired     []alert.Alert
	recovered []any
}

func (r *recorder) Fire(_ context.Context, a alert.Alert) {
	r.fired = append(r.fired, a)
}

func (r *recorder) Recover(context.Context) {
	if v := recover(); v != nil {
		r.recovered = append(r.recovered, v)
	}
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	n := alert.Multi(a, b)

	n.Fire(context.Background(), alert.Alert{Title: "x"})

	func() {
		defer n.Recover(context.Background())
		panic("boom")
	}()

	for i, r := range []*recorder{a, b} {
		if len(r.fired) != 1 || r.fired[0].Title != "x" {
			t.Errorf("notifier %d: unexpected alerts %v", i, r.fired)
		}

		if len(r.recovered) != 1 || r.recovered[0] != "boom" {
			t.Errorf("notifier %d: unexpected recoveries %v", i, r.recovered)
		}
	}
}
