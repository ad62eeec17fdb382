package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/nasa/analyser"
	"github.com/tlindal/nasasniff/internal/nasa/reassembler"
	"github.com/tlindal/nasasniff/internal/nasa/session"
	"github.com/tlindal/nasasniff/internal/testutil"
)

func testPacket() nasa.Packet {
	return nasa.Packet{
		Timestamp:   "2026-08-02T00:00:00Z",
		Source:      nasa.Address{Class: nasa.ClassIndoor, Channel: 0, Node: 0x0a},
		Destination: nasa.Address{Class: nasa.ClassOutdoor, Channel: 0, Node: 0x0a},
		Command:     nasa.Command{PacketType: nasa.PacketTypeNormal, DataType: nasa.DataTypeNotification},
		Messages: []nasa.MessageSet{
			{MessageNumber: 4000, Kind: nasa.KindEnum, Enum: 1},
		},
		RawFrame: []byte{0x32, 0x00, 0x10, 0x01, 0x02, 0x03, 0x00, 0x00, 0x34},
	}
}

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	sess := session.New(session.Config{Capacity: 8, Mode: session.ModeLive})
	sess.Start()
	an := analyser.New(analyser.Config{})
	sess.RegisterSink(analyserSink{an})
	return New(sess, an, nil), sess
}

// analyserSink adapts *analyser.Analyser to session.Sink for tests;
// only ObservePacket matters here.
type analyserSink struct{ an *analyser.Analyser }

func (s analyserSink) ObservePacket(p nasa.Packet)     { s.an.Observe(p) }
func (s analyserSink) ObserveError(session.ErrorEvent) {}
func (s analyserSink) ObserveResync(reassembler.Resync) {}

func TestHandleLiveTail_RejectsNonGET(t *testing.T) {
	s, _ := newTestServer(t)

	req := testutil.NewTestRequest(http.MethodPost, "/live/tail")
	rec := testutil.NewTestRecorder()
	s.handleLiveTail(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestHandleLiveTail_StreamsInitPingThenLiveEvent(t *testing.T) {
	s, sess := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/live/tail", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.handleLiveTail(rec, req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	testutil.AssertNoError(t, sess.Publish(testPacket()))
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleLiveTail did not return after context cancellation")
	}

	body := rec.Body.String()
	if !strings.Contains(body, ": ping") {
		t.Errorf("expected initial ping frame, got: %q", body)
	}
	if !strings.Contains(body, `"type":"init"`) {
		t.Errorf("expected an init envelope, got: %q", body)
	}
	if !strings.Contains(body, `"type":"packet"`) {
		t.Errorf("expected a packet envelope, got: %q", body)
	}
	if !strings.Contains(body, `"messageNumber":4000`) {
		t.Errorf("expected the packet payload to use long field names, got: %q", body)
	}
}

func TestHandleReport_ReturnsHTML(t *testing.T) {
	s, sess := newTestServer(t)
	testutil.AssertNoError(t, sess.Publish(testPacket()))

	req := testutil.NewTestRequest(http.MethodGet, "/report")
	rec := testutil.NewTestRecorder()
	s.handleReport(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<html") {
		t.Error("expected an HTML document body")
	}
}

func TestHandleStats_ReturnsJSONTotals(t *testing.T) {
	s, sess := newTestServer(t)
	testutil.AssertNoError(t, sess.Publish(testPacket()))

	req := testutil.NewTestRequest(http.MethodGet, "/stats")
	rec := testutil.NewTestRecorder()
	s.handleStats(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var stats analyser.Stats
	dec := json.NewDecoder(bufio.NewReader(rec.Body))
	testutil.AssertNoError(t, dec.Decode(&stats))
	if stats.Total != 1 || stats.UniqueGroups != 1 {
		t.Errorf("expected total=1 uniqueGroups=1, got %+v", stats)
	}
}
