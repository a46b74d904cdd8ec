// Package dispatcher is the single path every REST call takes: it attaches the
// bearer credential or share token, defeats intermediate caches on reads and
// turns responses into apperr kinds.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"pixshare/pkg/apperr"
)

const tracerName = "pixshare/dispatcher"

const (
	cacheBusterParam = "_"
	shareTokenParam  = "t"
)

// Upload is a multipart file part.
type Upload struct {
	Field    string
	FileName string
	Content  io.Reader
}

type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Credential is sent as a bearer header. Leave it empty for requests
	// made only on the strength of a share token.
	Credential string
	ShareToken string

	Body   any
	Upload *Upload
}

type Dispatcher struct {
	base           *url.URL
	client         *http.Client
	logger         *slog.Logger
	now            func() time.Time
	onUnauthorized func(credential string)

	lastBuster atomic.Int64

	mu       sync.Mutex
	rejected map[string]struct{}
}

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithUnauthorizedHandler sets the hook run when the server rejects a
// credential with 401 or 422. fn receives the rejected credential, which may
// no longer be the current one when the response arrives late. It runs once
// per credential no matter how many in-flight calls fail with it. Requests
// sent without a credential still fail with apperr.ErrUnauthorized but never
// run the hook.
func WithUnauthorizedHandler(fn func(credential string)) Option {
	return func(d *Dispatcher) { d.onUnauthorized = fn }
}

func New(baseURL string, opts ...Option) (*Dispatcher, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	d := &Dispatcher{
		base:   base,
		client: http.DefaultClient,
		logger: slog.Default(),
		now:    time.Now,

		rejected: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// BaseURL returns the API root the dispatcher resolves paths against.
func (d *Dispatcher) BaseURL() *url.URL {
	u := *d.base
	return &u
}

// Send performs req and decodes a 2xx JSON body into out (which may be nil).
// Failures are never retried.
func (d *Dispatcher) Send(ctx context.Context, req Request, out any) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.Bool("pixshare.share_token", req.ShareToken != ""),
			attribute.Bool("pixshare.credential", req.Credential != ""),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	httpReq, err := d.build(ctx, req)
	if err != nil {
		return err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", apperr.ErrNetwork, req.Method, req.Path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := decodeError(resp)
		d.logger.Debug("request failed", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
		if errors.Is(herr, apperr.ErrUnauthorized) && req.Credential != "" {
			d.signalUnauthorized(req.Credential)
		}
		return herr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

func (d *Dispatcher) build(ctx context.Context, req Request) (*http.Request, error) {
	u := d.base.JoinPath(req.Path)

	q := url.Values{}
	for k, vs := range req.Query {
		q[k] = append([]string(nil), vs...)
	}
	if req.ShareToken != "" {
		q.Set(shareTokenParam, req.ShareToken)
	}
	if req.Method == http.MethodGet {
		q.Set(cacheBusterParam, strconv.FormatInt(d.nextBuster(), 10))
	}
	u.RawQuery = q.Encode()

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Upload != nil:
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		part, err := mw.CreateFormFile(req.Upload.Field, req.Upload.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, req.Upload.Content); err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		body, contentType = buf, mw.FormDataContentType()
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Method == http.MethodGet {
		httpReq.Header.Set("Cache-Control", "no-cache")
		httpReq.Header.Set("Pragma", "no-cache")
	}
	if req.Credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	}
	return httpReq, nil
}

// nextBuster follows the wall clock in milliseconds but never repeats or goes
// backwards.
func (d *Dispatcher) nextBuster() int64 {
	now := d.now().UnixMilli()
	for {
		last := d.lastBuster.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if d.lastBuster.CompareAndSwap(last, next) {
			return next
		}
	}
}

// signalUnauthorized runs the hook the first time a credential is rejected.
// A rejected credential stays rejected, so later failures carrying it are
// already handled.
func (d *Dispatcher) signalUnauthorized(credential string) {
	d.mu.Lock()
	if _, seen := d.rejected[credential]; seen {
		d.mu.Unlock()
		return
	}
	d.rejected[credential] = struct{}{}
	d.mu.Unlock()

	d.logger.Info("credential rejected by server")
	if d.onUnauthorized != nil {
		d.onUnauthorized(credential)
	}
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload.Msg = strings.TrimSpace(string(raw))
	}
	msg := payload.Msg
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = payload.Error
	}
	return &apperr.HTTPError{
		Status:  resp.StatusCode,
		Message: msg,
		Kind:    apperr.KindForStatus(resp.StatusCode),
	}
}
