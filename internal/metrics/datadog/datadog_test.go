package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for empty Addr")
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if labelsToTags(nil) != nil {
		t.Fatal("nil labels should give nil tags")
	}
	got := strings.Join(labelsToTags(metrics.Labels{"step": "merge", "job": "foodsales"}), ",")
	if got != "job:foodsales,step:merge" {
		t.Fatalf("tags = %q", got)
	}
}

func TestBackend_SendsOverUDP(t *testing.T) {
	t.Parallel()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), Namespace: "test.", GlobalTags: []string{"run_id:abc"}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "inserted"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	payload := string(buf[:n])
	for _, want := range []string{"test." + metrics.RecordsTotal + ":3|c", "kind:inserted", "run_id:abc"} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload %q lacks %q", payload, want)
		}
	}
}

func TestBackend_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
