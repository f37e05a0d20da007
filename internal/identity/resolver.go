// Package identity exchanges externally issued access tokens for internal
// user identifiers via a signed call to a third-party profile service.
package identity

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnresolved collapses every failure mode of a lookup — transport error,
// non-200 status, malformed payload, missing id field — into one outcome.
var ErrUnresolved = errors.New("identity not resolved")

// Config holds the credentials and endpoint for the profile service. AppKey
// and AppSecret are the shared application credentials the service issued;
// Client is the client tag sent alongside every request.
type Config struct {
	Endpoint  string
	AppKey    string
	AppSecret string
	Client    string
	Timeout   time.Duration
}

// Resolver performs signed profile lookups. Each lookup is issued once,
// synchronously, with no retry and no caching of results.
type Resolver struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// New creates a Resolver. A zero Timeout defaults to 10 seconds.
func New(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Sign computes the request signature for an access token at the given Unix
// time in seconds: the md5 hex digest of the canonical parameter string with
// the application secret appended. It is a pure function of (token, ts) for
// a fixed credential pair.
func (r *Resolver) Sign(accessKey string, ts int64) string {
	payload := fmt.Sprintf("access_key=%s&appkey=%s&client=%s&ts=%d%s",
		accessKey, r.cfg.AppKey, r.cfg.Client, ts, r.cfg.AppSecret)
	return fmt.Sprintf("%x", md5.Sum([]byte(payload)))
}

// profileResponse is the subset of the profile service payload we read. The
// id lives in the nested data.mid field; a pointer keeps "absent" and "zero"
// apart.
type profileResponse struct {
	Data struct {
		Mid *int64 `json:"mid"`
	} `json:"data"`
}

// Resolve exchanges accessKey for the internal user identifier it belongs
// to. Any failure yields ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, accessKey string) (int64, error) {
	ts := r.now().Unix()

	params := url.Values{}
	params.Set("access_key", accessKey)
	params.Set("appkey", r.cfg.AppKey)
	params.Set("client", r.cfg.Client)
	params.Set("ts", strconv.FormatInt(ts, 10))
	params.Set("sign", r.Sign(accessKey, ts))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, ErrUnresolved
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, ErrUnresolved
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, ErrUnresolved
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, ErrUnresolved
	}
	if body.Data.Mid == nil {
		return 0, ErrUnresolved
	}
	return *body.Data.Mid, nil
}
