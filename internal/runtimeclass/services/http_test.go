package services

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAsyncHTTPStartGETRedirCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("served"))
	}))
	defer srv.Close()

	ctx, desc, rc, recv := newTestClass(t, AsyncHTTPPath)

	idle := mustInvoke(t, ctx, rc, recv, desc, "GetStatus").Payload.(int64)
	if idle != int64(httpStateIdle) {
		t.Fatalf("GetStatus before Start: got %d, want Idle(%d)", idle, httpStateIdle)
	}

	mustInvoke(t, ctx, rc, recv, desc, "StartGETRedir", vo(srv.URL))

	var final int64
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		final = mustInvoke(t, ctx, rc, recv, desc, "GetStatus").Payload.(int64)
		if final != int64(httpStateWaiting) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if final != int64(httpStateComplete) {
		t.Fatalf("GetStatus after request completes: got %d, want Complete(%d)", final, httpStateComplete)
	}

	out := mustInvoke(t, ctx, rc, recv, desc, "GetOutput")
	if string(out.Payload.([]byte)) != "served" {
		t.Fatalf("GetOutput: got %q, want served", out.Payload)
	}
}

func TestAsyncHTTPStartPOSTSendsBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, desc, rc, recv := newTestClass(t, AsyncHTTPPath)
	mustInvoke(t, ctx, rc, recv, desc, "StartPOST", vo(srv.URL), vo("text/plain"), vo("payload=1"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := mustInvoke(t, ctx, rc, recv, desc, "GetStatus").Payload.(int64)
		if state != int64(httpStateWaiting) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mustInvoke(t, ctx, rc, recv, desc, "GetOutput")
	if gotBody != "payload=1" {
		t.Fatalf("server saw body %q, want payload=1", gotBody)
	}
	if gotContentType != "text/plain" {
		t.Fatalf("server saw content type %q, want text/plain", gotContentType)
	}
}

func TestAsyncHTTPStartRaisesBusyWhileWaiting(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte("done"))
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	ctx, desc, rc, recv := newTestClass(t, AsyncHTTPPath)
	mustInvoke(t, ctx, rc, recv, desc, "StartGETRedir", vo(srv.URL))

	_, err := invoke(t, ctx, rc, recv, desc, "StartGETRedir", vo(srv.URL))
	if err == nil {
		t.Fatal("expected a second Start to raise Busy while the first is still waiting")
	}
}

func TestAsyncHTTPCancelOpStopsInFlightRequest(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	ctx, desc, rc, recv := newTestClass(t, AsyncHTTPPath)
	mustInvoke(t, ctx, rc, recv, desc, "StartGETRedir", vo(srv.URL))
	mustInvoke(t, ctx, rc, recv, desc, "CancelOp")

	deadline := time.Now().Add(2 * time.Second)
	var final int64
	for time.Now().Before(deadline) {
		final = mustInvoke(t, ctx, rc, recv, desc, "GetStatus").Payload.(int64)
		if final != int64(httpStateWaiting) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if final != int64(httpStateError) {
		t.Fatalf("GetStatus after CancelOp: got %d, want Error(%d)", final, httpStateError)
	}
}
