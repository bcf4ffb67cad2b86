// Package culler finds dead links among stored bookmarks.
package culler

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
)

// Status is the verdict for one bookmark URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx
	Dead                      // 404 or 410
	Unreachable               // network failure, server error, or unknown
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Reasons reported in Result.Error.
const (
	ReasonPrivate     = "Possibly private (auth required)"
	ReasonScheme      = "Unsupported scheme"
	ReasonCancelled   = "Cancelled"
	ReasonTimeout     = "Timeout"
	ReasonDNS         = "DNS failure"
	ReasonRefused     = "Connection refused"
	ReasonTLS         = "TLS/certificate error"
	ReasonUnreachable = "Network unreachable"
)

// Result is the outcome of checking one bookmark.
type Result struct {
	Bookmark   model.Bookmark
	Status     Status
	StatusCode int    // 0 when no response arrived
	Error      string // reason for Unreachable
}

// ProgressFunc is called after each URL is checked.
type ProgressFunc func(completed, total int)

// Options tunes a Checker.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	// ExcludeDomains lists domains (and their subdomains) where a 404
	// usually means a private page rather than a dead one.
	ExcludeDomains []string
	OnProgress     ProgressFunc
	// Client replaces the default HTTP client.
	Client *http.Client
	Logger logger.Logger
}

// Checker probes bookmark URLs.
type Checker struct {
	client      *http.Client
	exclude     map[string]bool
	concurrency int
	progress    ProgressFunc
	log         logger.Logger
}

// maxRedirects bounds redirect chains of the default client.
const maxRedirects = 10

// NewChecker applies defaults to opts: 10 workers and a 10s timeout.
func NewChecker(opts Options) *Checker {
	c := &Checker{
		client:      opts.Client,
		exclude:     make(map[string]bool, len(opts.ExcludeDomains)),
		concurrency: opts.Concurrency,
		progress:    opts.OnProgress,
		log:         opts.Logger,
	}
	if c.concurrency <= 0 {
		c.concurrency = 10
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	for _, d := range opts.ExcludeDomains {
		c.exclude[strings.ToLower(strings.TrimSpace(d))] = true
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	return c
}

// CheckURLs checks all bookmark URLs concurrently and returns results in
// input order.
func CheckURLs(ctx context.Context, bookmarks []model.Bookmark, opts Options) []Result {
	return NewChecker(opts).CheckAll(ctx, bookmarks)
}

// CheckAll checks bookmarks with a worker pool. Bookmarks not started
// before ctx is done are reported as cancelled.
func (c *Checker) CheckAll(ctx context.Context, bookmarks []model.Bookmark) []Result {
	if len(bookmarks) == 0 {
		return nil
	}

	// net/http logs protocol noise through the standard logger.
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	results := make([]Result, len(bookmarks))
	jobs := make(chan int)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	done := func() {
		if c.progress == nil {
			return
		}
		mu.Lock()
		completed++
		c.progress(completed, len(bookmarks))
		mu.Unlock()
	}

	for range min(c.concurrency, len(bookmarks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.Check(ctx, bookmarks[i])
				done()
			}
		}()
	}

	next := 0
feed:
	for ; next < len(bookmarks); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(bookmarks); i++ {
		results[i] = Result{Bookmark: bookmarks[i], Status: Unreachable, Error: ReasonCancelled}
		done()
	}
	return results
}

// Check probes one bookmark: HEAD first, GET when HEAD fails or the server
// refuses the method.
func (c *Checker) Check(ctx context.Context, b model.Bookmark) Result {
	res := Result{Bookmark: b}

	u, err := url.Parse(b.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		res.Status = Unreachable
		res.Error = ReasonScheme
		return res
	}

	resp, err := c.do(ctx, http.MethodHead, b.URL)
	if err == nil && headRefused(resp.StatusCode) {
		resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, b.URL)
	} else if err != nil && ctx.Err() == nil {
		resp, err = c.do(ctx, http.MethodGet, b.URL)
	}
	if err != nil {
		res.Status = Unreachable
		res.Error = classify(err)
		c.log.Debug("link unreachable", logger.String("url", b.URL), logger.Error(err))
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Status, res.Error = c.verdict(u.Hostname(), resp.StatusCode)
	return res
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// headRefused reports status codes some servers send for HEAD only.
func headRefused(code int) bool {
	return code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented
}

func (c *Checker) verdict(host string, code int) (Status, string) {
	switch {
	case code >= 200 && code < 400:
		return Healthy, ""
	case code == http.StatusNotFound || code == http.StatusGone:
		if c.excluded(host) {
			return Unreachable, ReasonPrivate
		}
		return Dead, ""
	default:
		// 403, 429 and 5xx are often temporary or need a login.
		return Unreachable, http.StatusText(code)
	}
}

// excluded matches host against the exclude list, subdomains included:
// "api.github.com" matches "github.com".
func (c *Checker) excluded(host string) bool {
	host = strings.ToLower(host)
	for {
		if c.exclude[host] {
			return true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return false
		}
		host = host[dot+1:]
	}
}

// classify turns a transport error into a short reason.
func classify(err error) string {
	var (
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		unknown x509.UnknownAuthorityError
		invalid x509.CertificateInvalidError
		host    x509.HostnameError
		netErr  net.Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return ReasonTimeout
		}
		return ReasonDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReasonRefused
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return ReasonUnreachable
	case errors.As(err, &certErr), errors.As(err, &unknown),
		errors.As(err, &invalid), errors.As(err, &host):
		return ReasonTLS
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	}
	return normalizeError(err.Error())
}

// normalizeError maps error text that carries no typed cause.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "no such host"):
		return ReasonDNS
	case strings.Contains(lower, "deadline exceeded"), strings.Contains(lower, "timeout"):
		return ReasonTimeout
	case strings.Contains(lower, "context canceled"):
		return ReasonCancelled
	case strings.Contains(lower, "connection refused"):
		return ReasonRefused
	case strings.Contains(lower, "certificate"), strings.Contains(lower, "tls:"):
		return ReasonTLS
	case strings.Contains(lower, "network is unreachable"):
		return ReasonUnreachable
	}
	return errStr
}

// DeadOnly returns the results with status Dead.
func DeadOnly(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Status == Dead {
			out = append(out, r)
		}
	}
	return out
}
