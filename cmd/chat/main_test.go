package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"localchat/domain"
	"localchat/session"
)

func testSession() *session.Session {
	return session.New(slog.Default(), domain.Identity{Username: "bob"}, "",
		nil, nil, nil, time.Second, 0)
}

// A signal must not leave the process hanging on a blocked stdin read.
func Test_InputLoop_Returns_On_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocked, w := io.Pipe() // a reader that never yields a line
	t.Cleanup(func() { _ = w.Close() })

	done := make(chan struct{})
	go func() {
		inputLoop(ctx, testSession(), nil, nil, blocked)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("input loop did not return after cancellation")
	}
}

func Test_InputLoop_Returns_On_Quit(t *testing.T) {
	done := make(chan struct{})
	go func() {
		inputLoop(context.Background(), testSession(), nil, nil, strings.NewReader("/quit\n"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("input loop did not return on /quit")
	}
}
