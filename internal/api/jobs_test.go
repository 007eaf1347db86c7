package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seantiz/surveyd/internal/model"
)

func TestSubmitEveryQueryType(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for i, qt := range model.QueryTypes {
		var body submitResponse
		code := doJSON(t, http.MethodPost, ts.URL+"/api/"+qt, `{"question":"q","state":"Ohio"}`, &body)
		if code != http.StatusOK {
			t.Errorf("POST /api/%s status = %d, want 200", qt, code)
		}
		if body.Status != "done" {
			t.Errorf("POST /api/%s status field = %q, want done", qt, body.Status)
		}
		if want := model.JobID(int64(i + 1)); body.JobID != want {
			t.Errorf("POST /api/%s job_id = %q, want %q", qt, body.JobID, want)
		}
	}
}

func TestSubmitUnknownQueryType(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/median", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/median: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 404 or 405", resp.StatusCode)
	}
}

func TestSubmitRejectsNonObjectBody(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, body := range []string{"not json", "[]", "null", `"question"`} {
		var resp errorResponse
		code := doJSON(t, http.MethodPost, ts.URL+"/api/best5", body, &resp)
		if code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, code)
		}
		if resp.Status != "error" || resp.Reason == "" {
			t.Errorf("body %q: response = %+v, want error with reason", body, resp)
		}
	}

	if n := len(srv.dispatcher.List()); n != 0 {
		t.Errorf("rejected bodies registered %d jobs", n)
	}
}

func TestSubmitAndGetResult(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var sub submitResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/states_mean", `{"question":"obesity"}`, &sub)

	body := waitForResult(t, ts.URL, sub.JobID)
	if got := string(body["status"]); got != `"done"` {
		t.Fatalf("status = %s, want \"done\"", got)
	}
	if got, want := string(body["data"]), `{"query_type":"states_mean","question":"obesity"}`; got != want {
		t.Errorf("data = %s, want %s", got, want)
	}
}

func TestGetResultRunning(t *testing.T) {
	g := newGate()
	srv := newTestServerWith(t, gated(g, echo), 1)
	t.Cleanup(g.open)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var sub submitResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/global_mean", `{"question":"q"}`, &sub)

	var body map[string]any
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/get_results/"+sub.JobID, "", &body); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if len(body) != 1 || body["status"] != "running" {
		t.Errorf("body = %v, want {status: running}", body)
	}
}

func TestGetResultFailed(t *testing.T) {
	failing := func(context.Context, string, model.Payload) (*model.Result, error) {
		return nil, errors.New("question not found")
	}
	srv := newTestServerWith(t, failing, 1)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var sub submitResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/state_mean", `{"question":"q"}`, &sub)

	body := waitForResult(t, ts.URL, sub.JobID)
	if got := string(body["status"]); got != `"failed"` {
		t.Errorf("status = %s, want \"failed\"", got)
	}
	var reason string
	json.Unmarshal(body["reason"], &reason)
	if reason == "" {
		t.Error("failed result has no reason")
	}
	if _, ok := body["data"]; ok {
		t.Error("failed result carries data")
	}
}

func TestGetResultInvalidJobID(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, id := range []string{"job_id_1", "job_id_999", "garbage"} {
		var body errorResponse
		code := doJSON(t, http.MethodGet, ts.URL+"/api/get_results/"+id, "", &body)
		if code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", id, code)
		}
		if body.Status != "error" || body.Reason != "Invalid job_id" {
			t.Errorf("%s: body = %+v", id, body)
		}
	}
}

func TestListJobs(t *testing.T) {
	g := newGate()
	srv := newTestServerWith(t, gated(g, echo), 1)
	t.Cleanup(g.open)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var empty jobsResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/jobs", "", &empty)
	if empty.Status != "done" || empty.Data == nil || len(empty.Data) != 0 {
		t.Errorf("empty list = %+v, want done with []", empty)
	}

	for range 3 {
		doJSON(t, http.MethodPost, ts.URL+"/api/worst5", `{"question":"q"}`, nil)
	}

	var list jobsResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/jobs", "", &list)
	if len(list.Data) != 3 {
		t.Fatalf("len(data) = %d, want 3", len(list.Data))
	}
	for i, entry := range list.Data {
		id := model.JobID(int64(i + 1))
		if len(entry) != 1 || entry[id] != "running" {
			t.Errorf("data[%d] = %v, want {%s: running}", i, entry, id)
		}
	}

	g.open()
	waitForResult(t, ts.URL, model.JobID(3))

	doJSON(t, http.MethodGet, ts.URL+"/api/jobs", "", &list)
	for i, entry := range list.Data {
		if id := model.JobID(int64(i + 1)); entry[id] != "done" {
			t.Errorf("data[%d] = %v, want done", i, entry)
		}
	}
}

func TestNumJobs(t *testing.T) {
	g := newGate()
	srv := newTestServerWith(t, gated(g, echo), 1)
	t.Cleanup(g.open)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var body numJobsResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/num_jobs", "", &body)
	if body.Status != "done" || body.NumJobs != 0 {
		t.Errorf("idle num_jobs = %+v, want done/0", body)
	}

	for range 4 {
		doJSON(t, http.MethodPost, ts.URL+"/api/best5", `{"question":"q"}`, nil)
	}

	// One job is held by the single worker; the rest wait in the queue.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && srv.dispatcher.Active() != 1 {
		time.Sleep(5 * time.Millisecond)
	}
	doJSON(t, http.MethodGet, ts.URL+"/api/num_jobs", "", &body)
	if body.NumJobs != 3 {
		t.Errorf("num_jobs = %d, want 3", body.NumJobs)
	}
}

func TestGracefulShutdown(t *testing.T) {
	g := newGate()
	srv := newTestServerWith(t, gated(g, echo), 2)
	t.Cleanup(g.open)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var ids []string
	for i := range 5 {
		var sub submitResponse
		doJSON(t, http.MethodPost, ts.URL+"/api/global_mean", fmt.Sprintf(`{"question":"q%d"}`, i), &sub)
		ids = append(ids, sub.JobID)
	}

	shutdownDone := make(chan int, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/api/graceful_shutdown")
		if err != nil {
			shutdownDone <- -1
			return
		}
		defer resp.Body.Close()
		var body shutdownResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status != "done" {
			shutdownDone <- -1
			return
		}
		shutdownDone <- resp.StatusCode
	}()

	// Shutdown must wait for the gated jobs.
	select {
	case <-shutdownDone:
		t.Fatal("graceful_shutdown returned before queued jobs finished")
	case <-time.After(100 * time.Millisecond):
	}

	var rejected errorResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/api/best5", `{"question":"q"}`, &rejected)
	if code != http.StatusServiceUnavailable || rejected.Reason != "Server not active" {
		t.Errorf("submit during shutdown = %d %+v, want 503 Server not active", code, rejected)
	}

	g.open()
	select {
	case code := <-shutdownDone:
		if code != http.StatusOK {
			t.Errorf("graceful_shutdown = %d, want 200 done", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("graceful_shutdown did not return")
	}

	for _, id := range ids {
		var body map[string]any
		doJSON(t, http.MethodGet, ts.URL+"/api/get_results/"+id, "", &body)
		if body["status"] != "done" {
			t.Errorf("%s status = %v, want done", id, body["status"])
		}
	}

	// A second call returns immediately.
	var body shutdownResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/graceful_shutdown", "", &body); code != http.StatusOK {
		t.Errorf("second graceful_shutdown = %d, want 200", code)
	}
}
