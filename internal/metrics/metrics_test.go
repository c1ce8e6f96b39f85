package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordBeforeInitIsNoop(t *testing.T) {
	if current.Load() != nil {
		t.Skip("collectors already registered")
	}
	ObserveDispatch("success", time.Second)
	ObserveEncode("tspl", time.Millisecond)
	ElementFault("image")
	BytesSent(10)
}

func TestInitRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
	Init(prometheus.NewRegistry())

	ObserveDispatch("success", 10*time.Millisecond)
	ElementFault("image")
	BytesSent(42)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"label_dispatch_outcomes_total",
		"label_dispatch_seconds",
		"label_element_faults_total",
		"label_bytes_sent_total",
	} {
		if !names[want] {
			t.Fatalf("metric %s not gathered", want)
		}
	}
}

func TestInitConcurrentWithRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ObserveDispatch("success", time.Millisecond)
			ObserveEncode("cpcl", time.Millisecond)
			ElementFault("text")
			BytesSent(1)
		}()
		go func() {
			defer wg.Done()
			Init(reg)
		}()
	}
	wg.Wait()
	if current.Load() == nil {
		t.Fatal("collectors not published after Init")
	}
}
