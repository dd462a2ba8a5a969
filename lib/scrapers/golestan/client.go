package golestan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golestan-backend/lib/restyutil"
	"golestan-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/golestan")

const DefaultBaseUrl = "https://golestan.ikiu.ac.ir"

const defaultMaxLoginAttempts = 5

// the portal fingerprints clients, a plain go user agent gets served a
// degraded page. everything here mirrors what a desktop chrome sends.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "en-US,en;q=0.9",
	"Sec-Ch-Ua":                 `"Chromium";v="140", "Not=A?Brand";v="24", "Google Chrome";v="140"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"Sec-Fetch-Site":            "same-origin",
	"Upgrade-Insecure-Requests": "1",
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	Solver  CaptchaSolver
	// captcha solve/submit attempts before giving up, defaults to 5
	MaxLoginAttempts int
	// per-request timeout, defaults to 30s
	Timeout time.Duration
	// when set, every request/response exchange is dumped to it
	DebugOutput restyutil.DumpOutput
}

// Client drives one portal session. the portal keeps order-dependent state
// on its side, so a Client must not be shared between concurrent fetches:
// create one per call. independent Clients are fully isolated, each owns
// its own cookie jar.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	solver  CaptchaSolver

	maxLoginAttempts int
	session          sessionState
}

// sessionState is the mutable per-session protocol state. it lives exactly
// as long as one fetch operation and is never persisted.
type sessionState struct {
	// server-assigned session affinity token, resubmitted as a cookie on
	// every request after the first
	sessionId string
	// "lt" and "u" only appear after a successful login, their presence
	// is the success signal of the captcha loop
	loginToken string
	userToken  string
	// "tck": per-page navigation ticket, reissued by nearly every
	// response. a ticket is valid for one step only.
	ticket string
	// mirrored into the "seq" cookie, incremented once per major
	// navigation step (not per retry)
	seq int
	// cache-busting nonce embedded in navigation urls, generated once
	// per major transition and reused across its steps
	nonce string

	username string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Solver == nil {
		return nil, fmt.Errorf("a captcha solver is required")
	}

	baseRaw := opts.BaseUrl
	if baseRaw == "" {
		baseRaw = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(baseRaw)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	maxAttempts := opts.MaxLoginAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxLoginAttempts
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeaders(defaultHeaders)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "scrapers/golestan/http")
	restyutil.DumpExchanges(client, opts.DebugOutput)

	return &Client{
		baseUrl:          baseUrl,
		http:             client,
		solver:           opts.Solver,
		maxLoginAttempts: maxAttempts,
	}, nil
}

func (c *Client) absUrl(pathAndQuery string) string {
	return c.baseUrl.String() + pathAndQuery
}

// get performs a GET with the default browser header set, optionally merged
// with per-call overrides. no retries happen at this layer.
func (c *Client) get(ctx context.Context, rawUrl string, headers ...map[string]string) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	for _, h := range headers {
		req.SetHeaders(h)
	}
	res, err := req.Get(rawUrl)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if !res.IsSuccess() {
		return nil, newError(
			CategoryRemoteServiceError,
			fmt.Sprintf("portal replied %d to GET %s", res.StatusCode(), rawUrl),
		)
	}
	return res.Body(), nil
}

func (c *Client) postForm(ctx context.Context, rawUrl string, form map[string]string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(rawUrl)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if !res.IsSuccess() {
		return nil, newError(
			CategoryRemoteServiceError,
			fmt.Sprintf("portal replied %d to POST %s", res.StatusCode(), rawUrl),
		)
	}
	return res.Body(), nil
}

type cookiePair struct {
	name  string
	value string
}

// setCookies replaces the jar wholesale. the portal distinguishes a blank
// cookie from an absent one, so the automatic jar alone is not enough:
// before each major step the exact expected cookie set is seeded manually,
// values captured from earlier responses included.
func (c *Client) setCookies(pairs []cookiePair) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	cookies := make([]*http.Cookie, len(pairs))
	for i, p := range pairs {
		cookies[i] = &http.Cookie{Name: p.name, Value: p.value, Path: "/"}
	}
	jar.SetCookies(c.baseUrl, cookies)
	c.http.SetCookieJar(jar)
	return nil
}

// cookieValue reads a cookie back out of the jar, "" when unset. response
// cookies land in the jar automatically, this is how lt/u/ctck are observed.
func (c *Client) cookieValue(name string) string {
	jar := c.http.GetClient().Jar
	if jar == nil {
		return ""
	}
	for _, ck := range jar.Cookies(c.baseUrl) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func newNonce() string {
	n, err := random.IntRange(0, 1_000_000_000)
	if err != nil {
		// crypto/rand failing is not worth surfacing for a cache buster
		n = int(time.Now().UnixNano() % 1_000_000_000)
	}
	return fmt.Sprintf("0.%09d", n)
}
