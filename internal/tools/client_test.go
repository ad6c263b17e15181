package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sony/gobreaker"
)

// upstream is a fake Juhe endpoint recording the queries it receives
type upstream struct {
	status  int
	body    string
	calls   atomic.Int32
	queries chan url.Values
}

func newUpstream(t *testing.T, status int, body string) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{status: status, body: body, queries: make(chan url.Values, 16)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		select {
		case u.queries <- r.URL.Query():
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(u.status)
		_, _ = w.Write([]byte(u.body))
	}))
	t.Cleanup(srv.Close)
	return u, srv
}

func TestNewClients_MissingAPIKey(t *testing.T) {
	if _, err := NewNewsClient(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewNewsClient() error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := NewTimezoneClient(Config{BaseURL: "http://example.com"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewTimezoneClient() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewsClient_Headlines(t *testing.T) {
	const okBody = `{"error_code":0,"reason":"success","result":{"stat":"1","data":[
		{"uniquekey":"k1","title":"First","date":"2026-10-19 08:00","category":"top","author_name":"Wire","url":"https://news.example.com/1"},
		{"uniquekey":"k2","title":"Second","date":"2026-10-19 09:00","category":"top","author_name":"Desk","url":"https://news.example.com/2","thumbnail_pic_s":"https://img.example.com/2.jpg"}
	]}}`

	tests := []struct {
		name      string
		status    int
		body      string
		newsType  string
		wantType  string
		want      []NewsItem
		wantErr   error
		wantCalls int32
	}{
		{
			name:     "default type",
			status:   http.StatusOK,
			body:     okBody,
			wantType: "top",
			want: []NewsItem{
				{UniqueKey: "k1", Title: "First", Date: "2026-10-19 08:00", Category: "top", AuthorName: "Wire", URL: "https://news.example.com/1"},
				{UniqueKey: "k2", Title: "Second", Date: "2026-10-19 09:00", Category: "top", AuthorName: "Desk", URL: "https://news.example.com/2", ThumbnailPicS: "https://img.example.com/2.jpg"},
			},
			wantCalls: 1,
		},
		{
			name:      "explicit type",
			status:    http.StatusOK,
			body:      `{"error_code":0,"result":{"stat":"1","data":[]}}`,
			newsType:  "keji",
			wantType:  "keji",
			want:      []NewsItem{},
			wantCalls: 1,
		},
		{
			name:     "invalid type",
			status:   http.StatusOK,
			body:     okBody,
			newsType: "weather",
			wantErr:  ErrInvalidChoice,
		},
		{
			name:      "upstream error code",
			status:    http.StatusOK,
			body:      `{"error_code":10001,"reason":"wrong key"}`,
			wantErr:   &APIError{},
			wantCalls: 1,
		},
		{
			name:      "missing result",
			status:    http.StatusOK,
			body:      `{"error_code":0,"reason":"success"}`,
			wantErr:   ErrUnexpectedFormat,
			wantCalls: 1,
		},
		{
			name:      "missing data",
			status:    http.StatusOK,
			body:      `{"error_code":0,"result":{"stat":"1"}}`,
			wantErr:   ErrUnexpectedFormat,
			wantCalls: 1,
		},
		{
			name:      "not json",
			status:    http.StatusOK,
			body:      `<html>maintenance</html>`,
			wantErr:   ErrUnexpectedFormat,
			wantCalls: 1,
		},
		{
			name:      "http failure",
			status:    http.StatusBadGateway,
			body:      `bad gateway`,
			wantErr:   &StatusError{},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, srv := newUpstream(t, tt.status, tt.body)
			c, err := NewNewsClient(Config{APIKey: "secret-key", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewNewsClient() error = %v", err)
			}

			got, err := c.Headlines(context.Background(), tt.newsType)
			if got := up.calls.Load(); got != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", got, tt.wantCalls)
			}

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("Headlines() error = %v", err)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("Headlines() mismatch (-want +got):\n%s", diff)
				}
				q := <-up.queries
				if q.Get("type") != tt.wantType || q.Get("key") != "secret-key" {
					t.Errorf("query = %v", q)
				}
			case *APIError:
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Code != 10001 || apiErr.Reason != "wrong key" {
					t.Errorf("Headlines() error = %v, want APIError 10001", err)
				}
			case *StatusError:
				var se *StatusError
				if !errors.As(err, &se) || se.StatusCode != tt.status {
					t.Errorf("Headlines() error = %v, want StatusError %d", err, tt.status)
				}
			default:
				if !errors.Is(err, want) {
					t.Errorf("Headlines() error = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestTimezoneClient_Zones(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `{"error_code":0,"result":{"tz":[
		{"name":"Tokyo","timezone_id":"Asia/Tokyo","timezone":"JST","utc":"+09:00"}
	]}}`)
	c, err := NewTimezoneClient(Config{APIKey: "tz-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewTimezoneClient() error = %v", err)
	}

	got, err := c.Zones(context.Background(), "")
	if err != nil {
		t.Fatalf("Zones() error = %v", err)
	}
	want := []Zone{{Name: "Tokyo", TimezoneID: "Asia/Tokyo", Timezone: "JST", UTC: "+09:00"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Zones() mismatch (-want +got):\n%s", diff)
	}

	q := <-up.queries
	if q.Get("c") != DefaultRegion {
		t.Errorf("region parameter c = %q, want %q", q.Get("c"), DefaultRegion)
	}
	if q.Get("key") != "tz-key" {
		t.Errorf("key = %q", q.Get("key"))
	}

	if _, err := c.Zones(context.Background(), "mars"); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("Zones(mars) error = %v, want ErrInvalidChoice", err)
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	up, srv := newUpstream(t, http.StatusServiceUnavailable, "down")
	c, err := NewNewsClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewNewsClient() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		var se *StatusError
		if _, err := c.Headlines(context.Background(), "top"); !errors.As(err, &se) {
			t.Fatalf("call %d error = %v, want StatusError", i, err)
		}
	}

	if _, err := c.Headlines(context.Background(), "top"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error after repeated failures = %v, want ErrOpenState", err)
	}
	if got := up.calls.Load(); got != 5 {
		t.Errorf("upstream calls = %d, want 5", got)
	}
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	up, srv := newUpstream(t, http.StatusNotFound, "missing")
	c, err := NewNewsClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewNewsClient() error = %v", err)
	}

	for i := 0; i < 7; i++ {
		if _, err := c.Headlines(context.Background(), "top"); errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("breaker opened on 4xx replies at call %d", i)
		}
	}
	if got := up.calls.Load(); got != 7 {
		t.Errorf("upstream calls = %d, want 7", got)
	}
}
