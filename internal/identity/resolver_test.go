package identity

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:  endpoint,
		AppKey:    "testapp",
		AppSecret: "testsecret",
		Client:    "android",
		Timeout:   2 * time.Second,
	}
}

func TestSignDeterministic(t *testing.T) {
	r := New(testConfig(""))

	a := r.Sign("abc", 1000)
	b := r.Sign("abc", 1000)
	if a != b {
		t.Fatalf("same inputs produced %q and %q", a, b)
	}

	if r.Sign("abc", 1001) == a {
		t.Error("changing ts did not change the signature")
	}
	if r.Sign("abd", 1000) == a {
		t.Error("changing the token did not change the signature")
	}
}

func TestSignCanonicalForm(t *testing.T) {
	r := New(testConfig(""))

	want := fmt.Sprintf("%x", md5.Sum([]byte("access_key=abc&appkey=testapp&client=android&ts=1000testsecret")))
	if got := r.Sign("abc", 1000); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveSuccess(t *testing.T) {
	var gotQuery map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"access_key": q.Get("access_key"),
			"appkey":     q.Get("appkey"),
			"client":     q.Get("client"),
			"ts":         q.Get("ts"),
			"sign":       q.Get("sign"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"data":{"mid":123456,"name":"x"}}`))
	}))
	defer ts.Close()

	r := New(testConfig(ts.URL))
	uid, err := r.Resolve(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if uid != 123456 {
		t.Errorf("got uid %d, want 123456", uid)
	}

	if gotQuery["access_key"] != "token-1" {
		t.Errorf("access_key = %q", gotQuery["access_key"])
	}
	if gotQuery["appkey"] != "testapp" || gotQuery["client"] != "android" {
		t.Errorf("credentials not forwarded: %v", gotQuery)
	}
	if gotQuery["ts"] == "" || gotQuery["sign"] == "" {
		t.Errorf("ts/sign missing: %v", gotQuery)
	}
}

func TestResolveFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}},
		{"malformed payload", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"missing mid", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":0,"data":{"name":"x"}}`))
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			r := New(testConfig(ts.URL))
			if _, err := r.Resolve(context.Background(), "tok"); err != ErrUnresolved {
				t.Errorf("got %v, want ErrUnresolved", err)
			}
		})
	}
}

func TestResolveTransportError(t *testing.T) {
	// Server torn down before the call.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	r := New(testConfig(ts.URL))
	if _, err := r.Resolve(context.Background(), "tok"); err != ErrUnresolved {
		t.Errorf("got %v, want ErrUnresolved", err)
	}
}
