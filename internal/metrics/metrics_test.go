package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPipelineCounters(t *testing.T) {
	p := NewPipeline()

	p.ObserveResult(true)
	p.ObserveResult(false)
	p.ObserveNotifyError()

	recorder := httptest.NewRecorder()
	p.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body := recorder.Body.String()

	for _, want := range []string{
		"camhal_frames_completed_total 1",
		"camhal_request_errors_total 1",
		"camhal_error_notifies_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
