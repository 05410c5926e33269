package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/events"
)

func TestActivityHub_BroadcastAndReceive(t *testing.T) {
	hub := newActivityHub()
	c := hub.subscribe(nil)
	defer hub.unsubscribe(c)

	hub.broadcast(events.TopicSessionLogin, []byte(`{"user_id":1}`))

	select {
	case evt := <-c.ch:
		if evt.Topic != events.TopicSessionLogin || string(evt.Data) != `{"user_id":1}` || evt.ID != 1 {
			t.Fatalf("event = %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestActivityHub_TopicFiltering(t *testing.T) {
	hub := newActivityHub()
	c := hub.subscribe([]string{"drivehub.session.*"})
	defer hub.unsubscribe(c)

	hub.broadcast(events.TopicNavRedirect, []byte(`{}`))
	hub.broadcast(events.TopicSessionLogout, []byte(`{}`))

	select {
	case evt := <-c.ch:
		if evt.Topic != events.TopicSessionLogout {
			t.Fatalf("topic = %q", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case evt := <-c.ch:
		t.Fatalf("unexpected event %q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestActivityHub_Unsubscribe(t *testing.T) {
	hub := newActivityHub()
	c := hub.subscribe(nil)
	hub.unsubscribe(c)

	hub.broadcast(events.TopicSessionLogin, []byte(`{}`))

	select {
	case <-c.ch:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestActivityHub_Since(t *testing.T) {
	hub := newActivityHub()
	if evts := hub.since(0); len(evts) != 0 {
		t.Fatalf("empty hub returned %d events", len(evts))
	}

	for range 5 {
		hub.broadcast(events.TopicNavRedirect, []byte(`{}`))
	}
	evts := hub.since(2)
	if len(evts) != 3 || evts[0].ID != 3 || evts[2].ID != 5 {
		t.Fatalf("since(2) = %d events", len(evts))
	}
}

func TestActivityHub_RingWraps(t *testing.T) {
	hub := newActivityHub()
	for range activityBacklog + 25 {
		hub.broadcast(events.TopicNavRedirect, []byte(`{}`))
	}

	evts := hub.since(0)
	if len(evts) != activityBacklog {
		t.Fatalf("expected %d events, got %d", activityBacklog, len(evts))
	}
	if evts[0].ID != 26 || evts[len(evts)-1].ID != activityBacklog+25 {
		t.Fatalf("oldest = %d, newest = %d", evts[0].ID, evts[len(evts)-1].ID)
	}
}

func TestActivityHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := newActivityHub()
	c := hub.subscribe(nil)
	defer hub.unsubscribe(c)

	done := make(chan struct{})
	go func() {
		for range cap(c.ch) * 2 {
			hub.broadcast(events.TopicNavRedirect, []byte(`{}`))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(c.ch) != cap(c.ch) {
		t.Errorf("client buffer = %d, want full", len(c.ch))
	}
}

func TestMatchTopic(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"drivehub.session.login", "drivehub.session.login", true},
		{"drivehub.session.login", "drivehub.session.logout", false},
		{"drivehub.session.*", "drivehub.session.logout", true},
		{"drivehub.session.*", "drivehub.nav.redirect", false},
		{"drivehub.>", "drivehub.nav.redirect", true},
		{"drivehub.>", "drivehub", false},
		{"drivehub.>", "other.nav.redirect", false},
		{"*.*.*", "drivehub.nav.redirect", true},
		{"*.*.*", "drivehub.nav", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := matchTopic(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("matchTopic(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

// streamFor runs the stream handler until the returned stop is called.
func streamFor(t *testing.T, p *Portal, target string, header http.Header) (*httptest.ResponseRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.handleActivityStream(rec, req)
	}()
	time.Sleep(50 * time.Millisecond)

	return rec, func() {
		cancel()
		<-done
	}
}

func TestActivityStream_DeliversPortalEvents(t *testing.T) {
	env := newTestEnv(t)
	rec, stop := streamFor(t, env.portal, "/admin/activity/stream", nil)

	env.portal.emit(context.Background(), events.TopicSessionLogin, events.NewSessionLogin(clientID, testNow))
	time.Sleep(50 * time.Millisecond)
	stop()

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var id, event, data string
	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
	if id != "1" || event != events.TopicSessionLogin {
		t.Fatalf("id = %q, event = %q", id, event)
	}
	var got events.SessionLogin
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("data %q: %v", data, err)
	}
	if got.UserID != clientID.ID || got.Tier != "client" {
		t.Errorf("payload = %+v", got)
	}
}

func TestActivityStream_TopicFilter(t *testing.T) {
	env := newTestEnv(t)
	rec, stop := streamFor(t, env.portal, "/admin/activity/stream?topics=drivehub.nav.*", nil)

	env.portal.hub.broadcast(events.TopicSessionLogin, []byte(`{"n":1}`))
	env.portal.hub.broadcast(events.TopicNavRedirect, []byte(`{"n":2}`))
	time.Sleep(50 * time.Millisecond)
	stop()

	body := rec.Body.String()
	if strings.Contains(body, events.TopicSessionLogin) || !strings.Contains(body, events.TopicNavRedirect) {
		t.Fatalf("filter not applied:\n%s", body)
	}
}

func TestActivityStream_LastEventIDReplay(t *testing.T) {
	env := newTestEnv(t)
	for _, n := range []string{"1", "2", "3"} {
		env.portal.hub.broadcast(events.TopicNavRedirect, []byte(`{"n":`+n+`}`))
	}

	rec, stop := streamFor(t, env.portal, "/admin/activity/stream", http.Header{"Last-Event-Id": {"1"}})
	stop()

	body := rec.Body.String()
	if strings.Contains(body, `data:{"n":1}`) {
		t.Errorf("event 1 should not be replayed:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) || !strings.Contains(body, `data:{"n":3}`) {
		t.Errorf("events 2 and 3 should be replayed:\n%s", body)
	}
}

func TestActivityStream_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	assertRedirect(t, env.get("/admin/activity/stream", nil), "/login")
	assertRedirect(t, env.get("/admin/activity/stream", env.login(clientID)), "/client")
}

func TestActivityStream_ThroughMiddleware(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(adminID)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/activity/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// The response headers arrive only after the first flush, so the
	// subscription is live by now.
	env.portal.emit(context.Background(), events.TopicSessionLogout, events.NewSessionLogout(clientID.ID, testNow))

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "event:"+events.TopicSessionLogout {
			return
		}
	}
	t.Fatalf("stream ended without the logout event: %v", scanner.Err())
}
