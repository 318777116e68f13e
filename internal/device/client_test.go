package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAddress {
		t.Fatalf("host = %q, want %q", u.Host, defaultAddress)
	}

	u, err = parseBaseURL("http://bells.local:8080/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	Header http.Header
}

type fakeDevice struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   string(data),
		Header: r.Header.Clone(),
	})
	f.mu.Unlock()
	f.handler(w, r, string(data))
}

func (f *fakeDevice) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newFakeDevice(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*fakeDevice, *Client) {
	t.Helper()
	fake := &fakeDevice{handler: handler}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return fake, c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type countingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *countingObserver) ObserveAttempt(command, form string, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := "fail"
	if ok {
		result = "ok"
	}
	o.calls = append(o.calls, command+"/"+form+"/"+result)
}

func TestSetBells_FallsBackExactlyOnce(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.Method == http.MethodPost {
			http.Error(w, "nope", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"enabled":true}`)
	})
	obs := &countingObserver{}
	c.observer = obs

	got, err := c.SetBells(context.Background(), true)
	if err != nil {
		t.Fatalf("SetBells returned error: %v", err)
	}
	if !got {
		t.Fatalf("SetBells = false, want true")
	}

	reqs := fake.recorded()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2 (primary + one fallback)", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Body != `{"enabled":true}` {
		t.Fatalf("primary = %s %q, want POST {\"enabled\":true}", reqs[0].Method, reqs[0].Body)
	}
	if ct := reqs[0].Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("primary Content-Type = %q, want application/json", ct)
	}
	if reqs[1].Method != http.MethodGet || reqs[1].Query.Get("enabled") != "1" {
		t.Fatalf("fallback = %s ?%s, want GET enabled=1", reqs[1].Method, reqs[1].Query.Encode())
	}
	if len(obs.calls) != 2 || obs.calls[0] != "toggle-bells/json/fail" || obs.calls[1] != "toggle-bells/query/ok" {
		t.Fatalf("observer calls = %v", obs.calls)
	}
}

func TestSetBells_NoSecondFallback(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := c.SetBells(context.Background(), false)
	var tr *TransportError
	if !errors.As(err, &tr) {
		t.Fatalf("SetBells error = %v, want *TransportError", err)
	}
	if tr.Status != http.StatusServiceUnavailable {
		t.Fatalf("TransportError.Status = %d, want 503", tr.Status)
	}
	reqs := fake.recorded()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want exactly 2", len(reqs))
	}
	if reqs[1].Query.Get("enabled") != "0" {
		t.Fatalf("fallback enabled = %q, want 0", reqs[1].Query.Get("enabled"))
	}
}

func TestSend_BusinessFailureDoesNotFallBack(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `{"success":false,"message":"busy"}`)
	})

	_, err := c.SetBells(context.Background(), true)
	var biz *BusinessError
	if !errors.As(err, &biz) || biz.Message != "busy" {
		t.Fatalf("SetBells error = %v, want business error busy", err)
	}
	if n := len(fake.recorded()); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}
}

func TestSetBells_AcceptsEnabledEcho(t *testing.T) {
	_, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `{"enabled":false}`)
	})
	got, err := c.SetBells(context.Background(), false)
	if err != nil || got {
		t.Fatalf("SetBells = %v, %v; want false, nil", got, err)
	}
}

func TestStopMelody_FallsBackToGet(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.Method == http.MethodPost {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	if err := c.StopMelody(context.Background()); err != nil {
		t.Fatalf("StopMelody returned error: %v", err)
	}
	reqs := fake.recorded()
	if len(reqs) != 2 || reqs[1].Method != http.MethodGet || reqs[1].Path != "/api/stop-melody" {
		t.Fatalf("requests = %+v, want POST then GET /api/stop-melody", reqs)
	}
}

func TestSetTime_LegacyFallback(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		if strings.Contains(body, "dateTime") {
			writeJSON(w, http.StatusBadRequest, `{"success":false,"message":"Formato data/ora non valido"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	when := time.Date(2025, time.September, 12, 15, 30, 5, 0, time.Local)
	if err := c.SetTime(context.Background(), when); err != nil {
		t.Fatalf("SetTime returned error: %v", err)
	}
	reqs := fake.recorded()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].Body != `{"dateTime":"2025-09-12T15:30:05"}` {
		t.Fatalf("primary body = %s", reqs[0].Body)
	}
	var legacy legacyTime
	if err := json.Unmarshal([]byte(reqs[1].Body), &legacy); err != nil {
		t.Fatalf("decode fallback body: %v", err)
	}
	if legacy != (legacyTime{2025, 9, 12, 15, 30, 5}) {
		t.Fatalf("fallback body = %+v", legacy)
	}
}

func TestSend_ExhaustedWithMessageIsBusinessFailure(t *testing.T) {
	_, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusBadRequest, `{"success":false,"message":"relay must be 1 or 2"}`)
	})
	_, err := c.Send(context.Background(), CmdSetRelay, Payload{Query: url.Values{"relay": {"1"}, "value": {"0"}}})
	var biz *BusinessError
	if !errors.As(err, &biz) || biz.Message != "relay must be 1 or 2" {
		t.Fatalf("Send error = %v, want business error", err)
	}
}

func TestSetRelay_EncodesQueryAndValidates(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `{"success":true,"relay":2,"value":0}`)
	})

	if err := c.SetRelay(context.Background(), 3, 0); err == nil {
		t.Fatalf("SetRelay(3) returned nil error, want validation error")
	}
	if n := len(fake.recorded()); n != 0 {
		t.Fatalf("validation failure sent %d requests, want 0", n)
	}

	if err := c.SetRelay(context.Background(), 2, 0); err != nil {
		t.Fatalf("SetRelay returned error: %v", err)
	}
	reqs := fake.recorded()
	if len(reqs) != 1 || reqs[0].Method != http.MethodGet || reqs[0].Query.Get("relay") != "2" || reqs[0].Query.Get("value") != "0" {
		t.Fatalf("requests = %+v, want GET ?relay=2&value=0", reqs)
	}
}

func TestMutate_MissingSuccessIsFailure(t *testing.T) {
	_, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `{"message":"ok?"}`)
	})
	_, err := c.Mutate(context.Background(), CmdDeleteMelody, Payload{Body: map[string]int{"index": 1}})
	var biz *BusinessError
	if !errors.As(err, &biz) {
		t.Fatalf("Mutate error = %v, want business error", err)
	}
}

func TestEmergencyStop_AnySuccessStatus(t *testing.T) {
	_, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		w.WriteHeader(http.StatusOK)
	})
	if err := c.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("EmergencyStop returned error: %v", err)
	}
}

func TestReads_RateLimitAndErrors(t *testing.T) {
	_, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch r.URL.Path {
		case "/api/status":
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		case "/api/relay-status":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/api/time":
			writeJSON(w, http.StatusOK, `{not-json`)
		}
	})

	if _, err := c.FetchStatus(context.Background()); !IsRateLimited(err) {
		t.Fatalf("FetchStatus error = %v, want ErrRateLimited", err)
	}
	_, err := c.FetchRelayStatus(context.Background())
	var tr *TransportError
	if !errors.As(err, &tr) || tr.Status != http.StatusInternalServerError {
		t.Fatalf("FetchRelayStatus error = %v, want transport error 500", err)
	}
	if _, err := c.FetchClock(context.Background()); err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("FetchClock error = %v, want decode response error", err)
	}
}

func TestRequests_CarryHeadersAndAuth(t *testing.T) {
	fake := &fakeDevice{handler: func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `{"time":"10:11:12","date":"13/12/2025"}`)
	}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithBasicAuth("admin", "secret123"))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	clock, err := c.FetchClock(context.Background())
	if err != nil {
		t.Fatalf("FetchClock returned error: %v", err)
	}
	if clock.Parsed(time.UTC).Year() != 2025 {
		t.Fatalf("Clock.Parsed = %v, want 2025", clock.Parsed(time.UTC))
	}

	req := fake.recorded()[0]
	if !strings.HasPrefix(req.Header.Get("User-Agent"), "belfry/") {
		t.Fatalf("User-Agent = %q, want belfry/*", req.Header.Get("User-Agent"))
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Fatalf("X-Request-ID header missing")
	}
	if !strings.HasPrefix(req.Header.Get("Authorization"), "Basic ") {
		t.Fatalf("Authorization = %q, want basic auth", req.Header.Get("Authorization"))
	}
}

func TestLocalValidation_SendsNothing(t *testing.T) {
	fake, c := newFakeDevice(t, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	ctx := context.Background()

	checks := []struct {
		name string
		err  error
	}{
		{"wifi ssid", c.ConfigureWiFi(ctx, "  ", "longenough")},
		{"wifi password", c.ConfigureWiFi(ctx, "parish", "short")},
		{"password empty", c.ChangePassword(ctx, "", "newpassword")},
		{"password short", c.ChangePassword(ctx, "old", "tiny")},
		{"set time zero", c.SetTime(ctx, time.Time{})},
		{"restore garbage", c.Restore(ctx, []byte("{nope"))},
	}
	for _, tc := range checks {
		var val *ValidationError
		if !errors.As(tc.err, &val) {
			t.Fatalf("%s: error = %v, want *ValidationError", tc.name, tc.err)
		}
	}
	if n := len(fake.recorded()); n != 0 {
		t.Fatalf("validation failures sent %d requests, want 0", n)
	}
}
