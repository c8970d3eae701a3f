package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/michaelbrown/runlet/internal/engine"
	"github.com/michaelbrown/runlet/internal/session"
	"github.com/michaelbrown/runlet/internal/storage"
	"github.com/michaelbrown/runlet/internal/storage/sqlite"
)

// stubExecutor satisfies session.Executor without spawning processes.
type stubExecutor struct {
	result engine.Result
}

func (s stubExecutor) Execute(ctx context.Context, source string, inputs []string) engine.Result {
	return s.result
}

func newTestServer(t *testing.T) (*httptest.Server, storage.Store) {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	exec := stubExecutor{result: engine.Result{RunID: "run-http", Outcome: engine.OutcomeOK, Output: "hi\n"}}
	coord := session.NewCoordinator(exec, store)
	srv := New(store, coord)

	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return ts, store
}

func postMessage(t *testing.T, ts *httptest.Server, requester, content string) []session.Reply {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"content": content})
	resp, err := http.Post(ts.URL+"/api/chat/"+requester+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var replies []session.Reply
	if err := json.NewDecoder(resp.Body).Decode(&replies); err != nil {
		t.Fatalf("decoding replies: %v", err)
	}
	return replies
}

func TestSendMessageRunFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	replies := postMessage(t, ts, "alice", "/run")
	if len(replies) != 1 || replies[0].Kind != session.KindPrompt {
		t.Fatalf("replies = %v, want single code prompt", replies)
	}

	replies = postMessage(t, ts, "alice", `print("hi")`)
	last := replies[len(replies)-1]
	if last.Kind != session.KindOutput || last.Text != "hi\n" {
		t.Errorf("last reply = %+v, want run output", last)
	}
}

func TestSendMessageUnknownCommand(t *testing.T) {
	ts, _ := newTestServer(t)

	replies := postMessage(t, ts, "alice", "/fly")
	if len(replies) != 1 || replies[0].Kind != session.KindError {
		t.Fatalf("replies = %v, want error reply", replies)
	}
}

func TestIdleTextReturnsEmptyReplies(t *testing.T) {
	ts, _ := newTestServer(t)

	replies := postMessage(t, ts, "alice", "hello")
	if len(replies) != 0 {
		t.Errorf("replies = %v, want none for idle text", replies)
	}
}

func TestRunHistoryEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	postMessage(t, ts, "alice", "/run")
	postMessage(t, ts, "alice", `print("hi")`)

	resp, err := http.Get(ts.URL + "/api/runs?requester=alice")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var runs []storage.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].ID != "run-http" || runs[0].Outcome != "ok" {
		t.Errorf("run = %+v, want recorded stub run", runs[0])
	}

	resp, err = http.Get(ts.URL + "/api/runs/run-http")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get run status = %d, want 200", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/run-http", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
}

func TestGetRunNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/runs/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
