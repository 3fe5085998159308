package acceptance_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("team connect/disconnect lifecycle", func() {
	var ts *testServer

	BeforeEach(func() {
		ts = newTestServer()
	})

	AfterEach(func() {
		ts.close()
	})

	It("reports no team connected before a team binds", func() {
		var team map[string]any
		resp := ts.get("/api/team", &team)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(team["team"]).To(BeNil())
		Expect(team["running"]).To(Equal(false))
	})

	It("binds and then clears a team binding", func() {
		writeTeamConfig(ts.teams, "alpha")

		resp := ts.postJSON(http.MethodPost, "/api/team/connect", map[string]any{
			"name":       "alpha",
			"projectDir": "/tmp/p",
			"model":      "opus",
		}, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var team map[string]any
		ts.get("/api/team", &team)
		Expect(team["team"]).To(Equal("alpha"))
		Expect(team["projectDir"]).To(Equal("/tmp/p"))
		Expect(team["model"]).To(Equal("opus"))
		Expect(team["running"]).To(Equal(false))

		disconnect := ts.postJSON(http.MethodPost, "/api/team/disconnect", nil, nil)
		Expect(disconnect.StatusCode).To(Equal(http.StatusOK))

		ts.get("/api/team", &team)
		Expect(team["team"]).To(BeNil())
	})

	It("requires name and projectDir to connect", func() {
		resp := ts.postJSON(http.MethodPost, "/api/team/connect", map[string]any{
			"name": "alpha",
		}, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("refuses to start a cycle before a team is connected", func() {
		resp := ts.postJSON(http.MethodPost, "/api/team/start", nil, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("lists teams discovered under the external teams root", func() {
		writeTeamConfig(ts.teams, "alpha")
		writeTeamConfig(ts.teams, "beta")

		var names []string
		resp := ts.get("/api/teams/available", &names)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(names).To(ConsistOf("alpha", "beta"))
	})

	It("returns an empty tail for a team with no cycle log yet", func() {
		writeTeamConfig(ts.teams, "alpha")
		ts.postJSON(http.MethodPost, "/api/team/connect", map[string]any{
			"name":       "alpha",
			"projectDir": "/tmp/p",
		}, nil)

		var lines []string
		resp := ts.get("/api/team/logs?lines=10", &lines)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(lines).To(BeEmpty())
	})
})
