// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestServerRunServesInProcessConnections(t *testing.T) {
	dir := t.TempDir()
	srv := New(WithServerName("test-ipc"), WithStoreDir(dir), WithJetStream(false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	conn := srv.ConnProvider()

	nc, err := nats.Connect("", nats.InProcessServer(conn))
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("ipc.test")
	if err != nil {
		t.Fatalf("SubscribeSync: %v", err)
	}
	if err := nc.Publish("ipc.test", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	if string(msg.Data) != "hello" {
		t.Fatalf("msg.Data = %q, want %q", msg.Data, "hello")
	}

	nc.Close()
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Run should return ctx.Err() after cancellation, got nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestConnProviderUnavailableBeforeStart(t *testing.T) {
	srv := New(WithServerName("test-ipc-unstarted"), WithStartupTimeout(10*time.Millisecond))
	conn := srv.ConnProvider()
	if _, err := conn.InProcessConn(); err == nil {
		t.Fatal("InProcessConn should fail when the server was never started")
	}
}

func TestServerRunRejectsEmptyServerName(t *testing.T) {
	srv := New(WithServerName(""))
	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("Run should reject an empty server name")
	}
}
