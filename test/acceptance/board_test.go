package acceptance_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("board task lifecycle", func() {
	var ts *testServer

	BeforeEach(func() {
		ts = newTestServer()
	})

	AfterEach(func() {
		ts.close()
	})

	It("keeps a ref and its inverse symmetric, and removes both together", func() {
		a := ts.createTask("A", "backlog")
		b := ts.createTask("B", "backlog")
		aID := a["id"].(string)
		bID := b["id"].(string)

		resp := ts.postJSON(http.MethodPost, "/api/tasks/"+aID+"/refs", map[string]any{
			"taskId": bID,
			"type":   "blocks",
		}, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var board map[string]any
		ts.get("/api/board", &board)
		tasks := board["tasks"].(map[string]any)

		refsOf := func(id string) []any {
			t := tasks[id].(map[string]any)
			if t["refs"] == nil {
				return nil
			}
			return t["refs"].([]any)
		}

		aRefs := refsOf(aID)
		Expect(aRefs).To(HaveLen(1))
		Expect(aRefs[0].(map[string]any)["taskId"]).To(Equal(bID))
		Expect(aRefs[0].(map[string]any)["type"]).To(Equal("blocks"))

		bRefs := refsOf(bID)
		Expect(bRefs).To(HaveLen(1))
		Expect(bRefs[0].(map[string]any)["taskId"]).To(Equal(aID))
		Expect(bRefs[0].(map[string]any)["type"]).To(Equal("blocked-by"))

		del := ts.postJSON(http.MethodDelete, "/api/tasks/"+aID+"/refs/"+bID, nil, nil)
		Expect(del.StatusCode).To(Equal(http.StatusOK))

		ts.get("/api/board", &board)
		tasks = board["tasks"].(map[string]any)
		Expect(refsOf(aID)).To(BeEmpty())
		Expect(refsOf(bID)).To(BeEmpty())
	})

	It("assigns strictly increasing order to tasks created into the same column", func() {
		first := ts.createTask("first", "backlog")
		second := ts.createTask("second", "backlog")
		third := ts.createTask("third", "backlog")

		o1 := first["order"].(float64)
		o2 := second["order"].(float64)
		o3 := third["order"].(float64)

		Expect(o2).To(BeNumerically(">", o1))
		Expect(o3).To(BeNumerically(">", o2))

		var board map[string]any
		ts.get("/api/board", &board)
		columnOrder := board["columnOrder"].(map[string]any)
		backlog := columnOrder["backlog"].([]any)
		Expect(backlog).To(Equal([]any{first["id"], second["id"], third["id"]}))
	})

	It("rejects a context path that escapes the team's project directory", func() {
		writeTeamConfig(ts.teams, "alpha")
		resp := ts.postJSON(http.MethodPost, "/api/team/connect", map[string]any{
			"name":       "alpha",
			"projectDir": "/tmp/p",
		}, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		task := ts.createTask("needs context", "backlog")
		id := task["id"].(string)

		escaping := ts.postJSON(http.MethodPost, "/api/tasks/"+id+"/context", map[string]any{
			"path": "../etc/passwd",
		}, nil)
		Expect(escaping.StatusCode).To(Equal(http.StatusBadRequest))

		var stored map[string]any
		within := ts.postJSON(http.MethodPost, "/api/tasks/"+id+"/context", map[string]any{
			"path": "src/a.ts",
		}, &stored)
		Expect(within.StatusCode).To(Equal(http.StatusCreated))
		Expect(stored["path"].(string)).To(ContainSubstring("/tmp/p"))
	})
})
