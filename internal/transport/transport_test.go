package transport

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSendNonBlockingFastPath(t *testing.T) {
	queue := make(chan int, 1)
	ok := Send(context.Background(), zerolog.Nop(), "test", queue, 42)
	if !ok {
		t.Fatalf("expected Send to succeed with room in queue")
	}
	if got := <-queue; got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestSendBlocksWhenFullThenDelivers(t *testing.T) {
	queue := make(chan int, 1)
	queue <- 1 // fill it

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan bool)
	go func() {
		done <- Send(ctx, zerolog.Nop(), "test", queue, 2)
	}()

	select {
	case <-done:
		t.Fatalf("Send returned before queue had room")
	case <-time.After(20 * time.Millisecond):
	}

	<-queue // drain the blocker, freeing a slot
	if !<-done {
		t.Fatalf("expected blocking Send to eventually succeed")
	}
}

func TestSendRespectsContextCancellation(t *testing.T) {
	queue := make(chan int, 1)
	queue <- 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		done <- Send(ctx, zerolog.Nop(), "test", queue, 2)
	}()
	cancel()
	if <-done {
		t.Fatalf("expected Send to abort once context is cancelled")
	}
}

func TestSubjectsForEmptySubscribesToEverything(t *testing.T) {
	got := subjectsFor(nil)
	if len(got) != 1 || got[0] != ">" {
		t.Fatalf("subjectsFor(nil) = %v, want [\">\"]", got)
	}
}

func TestSubjectsForStreamsIncludesRequestStreamAlias(t *testing.T) {
	got := subjectsFor([]string{"shop-production"})
	want := map[string]bool{"shop-production": true, "request-stream-shop-production": true}
	if len(got) != 2 {
		t.Fatalf("subjectsFor = %v, want 2 entries", got)
	}
	for _, s := range got {
		if !want[s] {
			t.Fatalf("unexpected subject %q", s)
		}
	}
}

func TestTopicPrefix(t *testing.T) {
	cases := map[string]string{
		"logs.shop.production":    "logs",
		"javascript":              "javascript",
		"frontend.page.production": "frontend",
	}
	for in, want := range cases {
		if got := topicPrefix(in); got != want {
			t.Fatalf("topicPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
