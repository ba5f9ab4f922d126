package host

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/peterM/HangFixer/internal/phase"
	"github.com/peterM/HangFixer/internal/recovery"
	"github.com/peterM/HangFixer/internal/sentinel"
	"github.com/peterM/HangFixer/internal/testutil"
)

func decodeReplies(t *testing.T, out string) []map[string]any {
	t.Helper()
	var replies []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("reply %q is not JSON: %v", line, err)
		}
		replies = append(replies, m)
	}
	return replies
}

func TestServe_EndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/ws/app.proj":      "project",
		"/ws/app.tmp":       "",
		"/ws/.cache/index":  "x",
		"/ws/alice.session": "x",
	})
	targets := recovery.Targets{CacheDirs: []string{".cache"}, SessionGlobs: []string{"*.session"}}
	seq := phase.New(sentinel.NewManager(fs), recovery.NewPolicy(fs, targets))
	a := NewAdapter(seq, nil)

	in := strings.Join([]string{
		`{"id":1,"event":"before_open_solution","path":"/ws/app.proj"}`,
		`{"id":2,"event":"query_background_load_project_batch"}`,
		`{"id":3,"event":"after_open_solution"}`,
		``,
		`not json`,
		`{"id":"x","event":"query_close_solution"}`,
	}, "\n")

	var out bytes.Buffer
	if err := a.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	replies := decodeReplies(t, out.String())
	if len(replies) != 5 {
		t.Fatalf("got %d replies, want 5:\n%s", len(replies), out.String())
	}
	for i, r := range replies {
		if r["ok"] != true {
			t.Errorf("reply %d not ok: %v", i, r)
		}
	}
	if replies[0]["id"] != float64(1) {
		t.Errorf("reply 0 id = %v, want 1", replies[0]["id"])
	}
	if replies[1]["delay"] != false {
		t.Errorf("reply 1 delay = %v, want false", replies[1]["delay"])
	}
	if replies[4]["cancel"] != false || replies[4]["id"] != "x" {
		t.Errorf("reply 4 = %v", replies[4])
	}

	testutil.AssertAbsent(t, fs, "/ws/.cache")
	testutil.AssertAbsent(t, fs, "/ws/alice.session")
	testutil.AssertAbsent(t, fs, "/ws/app.tmp")
	if got := seq.State("/ws/app.proj"); got != phase.StatePhase1Done {
		t.Errorf("State() = %v, want phase1_done", got)
	}
}

func TestServe_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewAdapter(&recorder{}, nil).Serve(ctx, pr, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestServe_WriteError(t *testing.T) {
	a := NewAdapter(&recorder{}, nil)
	err := a.Serve(context.Background(), strings.NewReader(`{"event":"after_close_solution"}`+"\n"), failingWriter{})
	if err != io.ErrClosedPipe {
		t.Errorf("Serve() error = %v, want io.ErrClosedPipe", err)
	}
}

func TestServe_OversizedLineIsAcknowledged(t *testing.T) {
	huge := `{"id":1,"event":"after_load_project","path":"` + strings.Repeat("a", maxLineSize+100*1024) + `"}`
	in := huge + "\n" + `{"id":2,"event":"query_close_solution"}` + "\r\n"

	var out bytes.Buffer
	if err := NewAdapter(&recorder{}, nil).Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	replies := decodeReplies(t, out.String())
	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2:\n%s", len(replies), out.String())
	}
	if replies[0]["ok"] != true {
		t.Errorf("oversized line reply = %v, want ok", replies[0])
	}
	if replies[1]["id"] != float64(2) || replies[1]["cancel"] != false {
		t.Errorf("reply after oversized line = %v", replies[1])
	}
}

func TestServe_MalformedLineKeepsID(t *testing.T) {
	in := `{"id":7,"event":["not","a","name"]}` + "\n" + `{"id":8,` + "\n"

	var out bytes.Buffer
	if err := NewAdapter(&recorder{}, nil).Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	replies := decodeReplies(t, out.String())
	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2:\n%s", len(replies), out.String())
	}
	if replies[0]["id"] != float64(7) || replies[0]["ok"] != true {
		t.Errorf("reply 0 = %v, want id 7 acknowledged", replies[0])
	}
	if _, ok := replies[1]["id"]; ok || replies[1]["ok"] != true {
		t.Errorf("reply 1 = %v, want an anonymous ok", replies[1])
	}
}
