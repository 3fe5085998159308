// Package acceptance_test drives a real clamban server over HTTP against a
// temporary data directory, the way the browser and the agent do. Grounded
// on re-cinq-detergent/test/acceptance's Describe/It/BeforeEach shape, using
// httptest.Server in place of a built binary since this server has no
// subprocess-per-test lifecycle of its own to shell out to.
package acceptance_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clamban/clamban/internal/httpapi"
	"github.com/clamban/clamban/internal/paths"
	"github.com/clamban/clamban/internal/supervisor"
)

// fastTiming shrinks the supervisor's debounce/crash-guard windows from
// their multi-second production defaults so acceptance specs don't block on
// real wall-clock time.
var fastTiming = supervisor.Timing{
	IdleDebounce:     30 * time.Millisecond,
	RespawnDebounce:  20 * time.Millisecond,
	CrashGuardWindow: 200 * time.Millisecond,
	KillEscalation:   50 * time.Millisecond,
}

func TestAcceptance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Acceptance Suite")
}

// testServer wraps one httpapi.Server rooted at a fresh temp directory and
// exposes it over httptest, alongside the helpers every spec file uses to
// talk to it.
type testServer struct {
	httpSrv *httptest.Server
	base    string
	teams   string
}

func newTestServer() *testServer {
	base, err := os.MkdirTemp("", "clamban-data-*")
	Expect(err).NotTo(HaveOccurred())
	teams, err := os.MkdirTemp("", "clamban-teams-*")
	Expect(err).NotTo(HaveOccurred())

	layout := paths.New(base, teams)
	Expect(layout.EnsureBase()).To(Succeed())

	srv := httpapi.New(layout, 200, fastTiming)
	ts := httptest.NewServer(srv.Mux())

	return &testServer{httpSrv: ts, base: base, teams: teams}
}

func (ts *testServer) close() {
	ts.httpSrv.Close()
	os.RemoveAll(ts.base)
	os.RemoveAll(ts.teams)
}

func (ts *testServer) url(path string) string { return ts.httpSrv.URL + path }

func (ts *testServer) get(path string, out any) *http.Response {
	resp, err := http.Get(ts.url(path))
	Expect(err).NotTo(HaveOccurred())
	if out != nil {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp
}

func (ts *testServer) postJSON(method, path string, body any, out any) *http.Response {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.url(path), reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	if out != nil {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp
}

func (ts *testServer) createTask(title string, column string) map[string]any {
	var task map[string]any
	resp := ts.postJSON(http.MethodPost, "/api/tasks", map[string]any{
		"title":  title,
		"column": column,
	}, &task)
	Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	return task
}

func writeTeamConfig(teamsRoot, name string) {
	dir := teamsRoot + "/" + name
	Expect(os.MkdirAll(dir+"/inboxes", 0o755)).To(Succeed())
	Expect(os.WriteFile(dir+"/config.json", []byte(fmt.Sprintf(`{"name":%q}`, name)), 0o644)).To(Succeed())
}
