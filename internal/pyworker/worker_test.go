package pyworker

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoResponse struct {
	Echo string `json:"echo"`
}

func echoHandler(req []byte) []byte {
	var r echoRequest
	if err := json.Unmarshal(req, &r); err != nil {
		return []byte(`{"error":"bad request"}`)
	}
	if r.Text == "fail" {
		return []byte(`{"error":"model raised ValueError"}`)
	}
	if r.Text == "crash" {
		return nil
	}
	out, _ := json.Marshal(echoResponse{Echo: strings.ToUpper(r.Text)})
	return out
}

func TestWorkerReusesProcess(t *testing.T) {
	fake := NewFake(echoHandler)
	w := New("", []byte("print('hi')"), []string{"--model", "small"}, nil).WithLauncher(fake.Launch)
	defer w.Close()

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, text := range []string{"a", "b", "c"} {
		var resp echoResponse
		if err := w.Call(context.Background(), echoRequest{Text: text}, &resp); err != nil {
			t.Fatalf("Call(%s): %v", text, err)
		}
		if resp.Echo != strings.ToUpper(text) {
			t.Errorf("expected %s, got %s", strings.ToUpper(text), resp.Echo)
		}
	}

	if got := fake.Starts(); got != 1 {
		t.Errorf("expected one process for all calls, got %d", got)
	}

	name, args := fake.LastCommand()
	if name != "python3" {
		t.Errorf("expected python3, got %s", name)
	}
	if len(args) != 3 || args[1] != "--model" || args[2] != "small" {
		t.Fatalf("unexpected args %v", args)
	}
	if _, err := os.Stat(args[0]); err != nil {
		t.Errorf("helper script should exist while running: %v", err)
	}

	w.Close()
	if _, err := os.Stat(args[0]); !os.IsNotExist(err) {
		t.Errorf("helper script should be removed on Close")
	}
	if err := w.Call(context.Background(), echoRequest{Text: "a"}, &echoResponse{}); err == nil {
		t.Error("expected error after Close")
	}
}

func TestWorkerHelperError(t *testing.T) {
	fake := NewFake(echoHandler)
	w := New("python3", nil, nil, nil).WithLauncher(fake.Launch)
	defer w.Close()

	err := w.Call(context.Background(), echoRequest{Text: "fail"}, &echoResponse{})
	if err == nil || !strings.Contains(err.Error(), "ValueError") {
		t.Fatalf("expected helper error, got %v", err)
	}

	var resp echoResponse
	if err := w.Call(context.Background(), echoRequest{Text: "ok"}, &resp); err != nil {
		t.Fatalf("helper should stay usable after a reported error: %v", err)
	}
	if fake.Starts() != 1 {
		t.Errorf("a reported error should not restart the helper, got %d starts", fake.Starts())
	}
}

func TestWorkerRestartsAfterExit(t *testing.T) {
	fake := NewFake(echoHandler)
	w := New("python3", nil, nil, nil).WithLauncher(fake.Launch)
	defer w.Close()

	if err := w.Call(context.Background(), echoRequest{Text: "crash"}, &echoResponse{}); err == nil {
		t.Fatal("expected error when the helper exits")
	}

	var resp echoResponse
	if err := w.Call(context.Background(), echoRequest{Text: "again"}, &resp); err != nil {
		t.Fatalf("Call after restart: %v", err)
	}
	if resp.Echo != "AGAIN" {
		t.Errorf("unexpected reply %q", resp.Echo)
	}
	if fake.Starts() != 2 {
		t.Errorf("expected a restart, got %d starts", fake.Starts())
	}
}

func TestWorkerCancelledCall(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	fake := NewFake(func(req []byte) []byte {
		if strings.Contains(string(req), "slow") {
			entered <- struct{}{}
			<-release
		}
		return echoHandler(req)
	})
	defer close(release)

	w := New("python3", nil, nil, nil).WithLauncher(fake.Launch)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- w.Call(ctx, echoRequest{Text: "slow"}, &echoResponse{})
	}()
	<-entered
	cancel()

	if err := <-errc; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var resp echoResponse
	if err := w.Call(context.Background(), echoRequest{Text: "next"}, &resp); err != nil {
		t.Fatalf("Call after cancel: %v", err)
	}
	if resp.Echo != "NEXT" {
		t.Errorf("stale reply leaked into the next call: %q", resp.Echo)
	}
	if fake.Starts() != 2 {
		t.Errorf("abandoned helper should be replaced, got %d starts", fake.Starts())
	}
}

func TestWorkerSerialisesCalls(t *testing.T) {
	fake := NewFake(echoHandler)
	w := New("python3", nil, nil, nil).WithLauncher(fake.Launch)
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := strings.Repeat("x", i+1)
			var resp echoResponse
			if err := w.Call(context.Background(), echoRequest{Text: text}, &resp); err != nil {
				t.Errorf("Call: %v", err)
				return
			}
			if resp.Echo != strings.ToUpper(text) {
				t.Errorf("reply mismatch: sent %s got %s", text, resp.Echo)
			}
		}(i)
	}
	wg.Wait()

	if fake.Starts() != 1 {
		t.Errorf("expected one process, got %d", fake.Starts())
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{limit: 16}
	tb.Write([]byte("first line\n"))
	tb.Write([]byte("second line\n"))
	if got := tb.String(); strings.Contains(got, "first") {
		t.Errorf("expected only the tail, got %q", got)
	}
}
