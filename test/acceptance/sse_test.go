package acceptance_test

import (
	"bufio"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// readFrame reads one "data: {...}\n\n" SSE frame's payload line.
func readFrame(r *bufio.Reader) (string, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: "), nil
		}
	}
}

var _ = Describe("SSE event stream", func() {
	var ts *testServer

	BeforeEach(func() {
		ts = newTestServer()
	})

	AfterEach(func() {
		ts.close()
	})

	It("pushes a connected frame immediately on subscribe", func() {
		resp, err := http.Get(ts.url("/api/events"))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

		frame, err := readFrame(bufio.NewReader(resp.Body))
		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(ContainSubstring(`"type":"connected"`))
	})

	It("broadcasts board-changed to subscribers when a task is created", func() {
		resp, err := http.Get(ts.url("/api/events"))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		reader := bufio.NewReader(resp.Body)

		_, err = readFrame(reader) // connected
		Expect(err).NotTo(HaveOccurred())

		ts.createTask("triggers a broadcast", "backlog")

		frameCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			frame, err := readFrame(reader)
			if err != nil {
				errCh <- err
				return
			}
			frameCh <- frame
		}()

		select {
		case frame := <-frameCh:
			Expect(frame).To(ContainSubstring(`"type":"board-changed"`))
		case err := <-errCh:
			Fail("reading SSE frame failed: " + err.Error())
		case <-time.After(3 * time.Second):
			Fail("did not receive board-changed within timeout")
		}
	})
})
