package main

import (
	"bytes"
	"net/http"
	"os"
	osSignal "os/signal"
	"slices"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func stubSignals(t *testing.T) *[]os.Signal {
	t.Helper()
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	var registered []os.Signal
	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		registered = append(registered, sig...)
		go func() {
			ch <- syscall.SIGTERM
		}()
	}
	return &registered
}

func TestServeStopsOnTermination(t *testing.T) {
	registered := stubSignals(t)
	suiteFile := writeSuite(t, map[string]string{
		"lit.cfg.yaml": "name: Smoke\n",
		"ok.tst":       "RUN: true\n",
	})

	args := append(baseArgs(t, suiteFile), "serve", "--port", "127.0.0.1:0")
	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(args, &stdout, &stderr)
	}()

	select {
	case code := <-done:
		if code != exitOK {
			t.Fatalf("expected exit %d, got %d (stderr: %s)", exitOK, code, stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after SIGTERM")
	}
	if !slices.Contains(*registered, os.Signal(syscall.SIGTERM)) || !slices.Contains(*registered, os.Interrupt) {
		t.Fatalf("expected serve to listen for SIGINT and SIGTERM, got %v", *registered)
	}
}

func TestShutdownLogsAndStopsServer(t *testing.T) {
	stubSignals(t)

	server := &http.Server{}
	called := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		called <- struct{}{}
	})

	core, logs := observer.New(zapcore.InfoLevel)
	shutdown(server, time.Millisecond, zap.New(core))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown callback to execute")
	}
	if logs.FilterMessage("shutting down server").Len() != 1 {
		t.Fatalf("expected shutdown to be logged, got %v", logs.All())
	}
	if logs.FilterMessage("graceful shutdown failed").Len() != 0 {
		t.Fatalf("did not expect an idle server to need a forced close")
	}
}
