// Package gateway is the single outbound chokepoint for provider calls.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/quota"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/httputil"
	"github.com/orunio/climate/backend/pkg/logger"
)

// Request is a provider-relative call description
type Request struct {
	Provider   string
	Endpoint   string            // endpoint name in the registry
	PathParams map[string]string // fills {placeholders} in the endpoint path
	Params     url.Values
	Method     string      // defaults to GET
	Body       interface{} // JSON-encoded for POST
	Header     http.Header

	// Heavy selects the long timeout for GETs that return imagery
	Heavy bool
}

// Gateway issues provider calls and converts every result into an Outcome
// ⭐ SSOT: 외부 API 호출 → Outcome 변환은 여기서만 (예외가 경계를 넘지 않음)
type Gateway struct {
	registry    *registry.Registry
	tracker     *quota.Tracker
	client      *httputil.Client
	logger      *logger.Logger
	getTimeout  time.Duration
	postTimeout time.Duration
}

// New creates a gateway and seeds the tracker with each provider's default quota
func New(reg *registry.Registry, tracker *quota.Tracker, client *httputil.Client, log *logger.Logger, cfg config.GatewayConfig) *Gateway {
	for _, p := range reg.All() {
		if p.DefaultQuota > 0 {
			tracker.Init(p.Name, p.DefaultQuota)
		}
	}

	return &Gateway{
		registry:    reg,
		tracker:     tracker,
		client:      client,
		logger:      log,
		getTimeout:  cfg.GetTimeout,
		postTimeout: cfg.PostTimeout,
	}
}

// Registry returns the provider catalog
func (g *Gateway) Registry() *registry.Registry {
	return g.registry
}

// Tracker returns the quota tracker
func (g *Gateway) Tracker() *quota.Tracker {
	return g.tracker
}

// HasCredentials reports whether a call to provider can carry a key it needs
func (g *Gateway) HasCredentials(provider string) bool {
	p, ok := g.registry.Get(provider)
	if !ok {
		return false
	}
	return !p.KeyRequired || p.HasKey()
}

// Call performs one request. It never panics or returns an error.
func (g *Gateway) Call(ctx context.Context, req Request) contracts.Outcome {
	log := g.logger.WithProvider(req.Provider).WithField("endpoint", req.Endpoint)

	p, ok := g.registry.Get(req.Provider)
	if !ok {
		return contracts.Failure(contracts.KindNotFound, "unknown provider %q", req.Provider)
	}

	// 키 없으면 네트워크 호출 없이 즉시 반환
	if p.KeyRequired && !p.HasKey() {
		log.Debug("Skipping call, no API key configured")
		return contracts.Failure(contracts.KindMissingCredentials, "%s requires an API key and none is configured", p.Name)
	}

	if !g.tracker.CanCall(p.Name) {
		state, _ := g.tracker.Get(p.Name)
		log.WithField("reset_at", state.ResetAt).Warn("Local quota exhausted, call not attempted")
		return contracts.Failure(contracts.KindRateLimited, "%s quota exhausted until %s",
			p.Name, state.ResetAt.UTC().Format(time.RFC3339))
	}

	target, outcome, ok := buildURL(p, req)
	if !ok {
		return outcome
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	applyAuth(p, target, header)

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = json.Marshal(req.Body); err != nil {
			return contracts.Failure(contracts.KindServerError, "encode request body: %v", err)
		}
		header.Set("Content-Type", "application/json")
	}

	timeout := g.getTimeout
	if method != http.MethodGet || req.Heavy {
		timeout = g.postTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g.tracker.MarkCall(p.Name)
	resp, err := g.client.Do(callCtx, httputil.Request{
		Method:       method,
		URL:          target.String(),
		Header:       header,
		Body:         body,
		RateLimitKey: p.Name,
	})
	if err != nil {
		kind := contracts.KindNetworkError
		if httputil.IsTimeout(err) {
			kind = contracts.KindTimeout
		}
		log.WithError(err).WithField("kind", kind).Warn("Provider call failed")
		o := contracts.Failure(kind, "%s %s: %v", method, req.Endpoint, redact(err, p.APIKey))
		o.Attempted = true
		return o
	}

	g.tracker.Observe(p.Name, resp.Header)

	outcome = classify(resp.StatusCode, resp.Body, resp.Header, p.APIKey)
	if outcome.OK() {
		log.WithFields(map[string]interface{}{
			"status":   resp.StatusCode,
			"duration": resp.Duration.String(),
		}).Debug("Provider call succeeded")
	} else {
		log.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"kind":   outcome.Kind,
		}).Warn("Provider call rejected")
	}
	return outcome
}

// Classify maps an HTTP response onto an Outcome
func Classify(status int, body []byte, header http.Header) contracts.Outcome {
	return classify(status, body, header, "")
}

// classify is Classify with key masking in failure messages; the success payload is untouched
func classify(status int, body []byte, header http.Header, key string) contracts.Outcome {
	snippet := func(b []byte) string { return snippetOf(b, key) }

	switch {
	case status >= 200 && status < 300:
		return contracts.Success(status, body, header)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if declaresRateLimit(body) {
			return contracts.Failure(contracts.KindRateLimited, "provider rate limit: %s", snippet(body)).WithStatus(status)
		}
		return contracts.Failure(contracts.KindAuthRejected, "credentials rejected: %s", snippet(body)).WithStatus(status)
	case status == http.StatusNotFound:
		return contracts.Failure(contracts.KindNotFound, "not found: %s", snippet(body)).WithStatus(status)
	case status == http.StatusTooManyRequests:
		return contracts.Failure(contracts.KindRateLimited, "too many requests: %s", snippet(body)).WithStatus(status)
	case status == http.StatusServiceUnavailable:
		return contracts.Failure(contracts.KindServerError, "service unavailable").WithStatus(status)
	case status >= 500:
		return contracts.Failure(contracts.KindServerError, "server error: %s", snippet(body)).WithStatus(status)
	default:
		// 그 외 4xx: 요청 형식 거부 (재시도 의미 없음)
		return contracts.Failure(contracts.KindServerError, "request rejected with HTTP %d: %s", status, snippet(body)).WithStatus(status)
	}
}

func buildURL(p registry.ProviderConfig, req Request) (*url.URL, contracts.Outcome, bool) {
	path, ok := p.Endpoint(req.Endpoint)
	if !ok {
		return nil, contracts.Failure(contracts.KindNotFound, "%s has no endpoint %q", p.Name, req.Endpoint), false
	}

	for k, v := range req.PathParams {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	if strings.ContainsAny(path, "{}") {
		return nil, contracts.Failure(contracts.KindNotFound, "%s endpoint %q has unresolved path parameters", p.Name, req.Endpoint), false
	}

	u, err := url.Parse(strings.TrimRight(p.BaseURL, "/") + path)
	if err != nil {
		return nil, contracts.Failure(contracts.KindNetworkError, "invalid URL for %s: %v", p.Name, err), false
	}

	q := u.Query()
	for k, vs := range req.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u, contracts.Outcome{}, true
}

func applyAuth(p registry.ProviderConfig, u *url.URL, header http.Header) {
	if !p.HasKey() {
		return
	}

	switch p.Auth {
	case registry.AuthQuery:
		q := u.Query()
		q.Set(p.AuthParam, p.APIKey)
		u.RawQuery = q.Encode()
	case registry.AuthHeader:
		header.Set(p.AuthParam, p.APIKey)
	case registry.AuthBearer:
		header.Set("Authorization", "Bearer "+p.APIKey)
	}
}

func declaresRateLimit(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "over_rate_limit") || strings.Contains(s, "rate limit")
}

// snippetOf trims a response body for outcome messages.
// The key is masked before trimming so a cut cannot leave part of it.
func snippetOf(body []byte, key string) string {
	s := strings.TrimSpace(redactString(string(body), key))
	if s == "" {
		return "empty response"
	}
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// redact strips an API key echoed back inside a transport error (query keys end up in url.Error)
func redact(err error, key string) string {
	return redactString(err.Error(), key)
}

// redactString masks every occurrence of key in s
func redactString(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, MaskKey(key))
}

// MaskKey shows only the first characters of a credential
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 10 {
		return key[:len(key)/2] + "..."
	}
	return key[:10] + "..."
}
