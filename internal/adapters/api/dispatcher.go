package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/larriantoniy/freelance_client/internal/ports"
)

type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"

	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// RequestSpec describes one call. An empty Method means GET, a nil Body
// sends no body and an empty AuthHeader sends no Authorization header.
type RequestSpec struct {
	Endpoint   string
	Method     Method
	Body       any
	AuthHeader string
}

// Empty is the result type of calls that answer with no content.
type Empty struct{}

type Dispatcher struct {
	client    *http.Client
	baseURL   string
	log       *slog.Logger
	callbacks ports.CallbackQueue
}

// NewDispatcher builds a dispatcher for baseURL (e.g. http://192.168.2.159:8000).
// A nil client means a plain http.Client with the transport defaults.
func NewDispatcher(baseURL string, client *http.Client, callbacks ports.CallbackQueue, log *slog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Dispatcher{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log.With("component", "dispatcher"),
		callbacks: callbacks,
	}
}

// Request executes spec and decodes the response body into T.
func Request[T any](ctx context.Context, d *Dispatcher, spec RequestSpec) (T, error) {
	var out T

	body, err := d.do(ctx, spec)
	if err != nil {
		return out, err
	}

	if len(body) == 0 {
		if _, ok := any(out).(Empty); ok {
			return out, nil
		}
		return out, ErrNoData
	}

	if err := json.Unmarshal(body, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return out, nil
}

// RequestAsync runs Request on its own goroutine and delivers the outcome
// on the dispatcher's callback queue. done may be nil.
func RequestAsync[T any](ctx context.Context, d *Dispatcher, spec RequestSpec, done func(T, error)) {
	go func() {
		v, err := Request[T](ctx, d, spec)
		if done == nil {
			return
		}
		d.callbacks.Post(func() { done(v, err) })
	}()
}

// Fire sends spec and discards the outcome. Failures are only logged.
func Fire(ctx context.Context, d *Dispatcher, spec RequestSpec) {
	go func() {
		if _, err := Request[json.RawMessage](ctx, d, spec); err != nil && !errors.Is(err, ErrNoData) {
			d.log.Debug("fire-and-forget request failed", "endpoint", spec.Endpoint, "error", err)
		}
	}()
}

// FormResponse is the raw outcome of PostForm; any status is returned as is.
type FormResponse struct {
	StatusCode int
	Body       []byte
}

func (r *FormResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// PostForm sends values form-encoded to endpoint. With inQuery the values
// are also appended as the query string, which /auth/register expects.
func (d *Dispatcher) PostForm(ctx context.Context, endpoint string, values url.Values, inQuery bool) (*FormResponse, error) {
	u, err := d.buildURL(endpoint)
	if err != nil {
		return nil, err
	}
	if inQuery {
		u.RawQuery = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set(headerContentType, contentTypeForm)

	status, body, err := d.send(req, endpoint)
	if err != nil {
		return nil, err
	}
	return &FormResponse{StatusCode: status, Body: body}, nil
}

func (d *Dispatcher) do(ctx context.Context, spec RequestSpec) ([]byte, error) {
	u, err := d.buildURL(spec.Endpoint)
	if err != nil {
		return nil, err
	}

	method := spec.Method
	if method == "" {
		method = MethodGet
	}
	switch method {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
	default:
		return nil, &CustomError{Message: fmt.Sprintf("unsupported method %q", method)}
	}

	// encode before any I/O
	var reader io.Reader
	if spec.Body != nil {
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, &CustomError{Message: MsgEncodeFailed, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if spec.AuthHeader != "" {
		req.Header.Set(headerAuthorization, spec.AuthHeader)
	}
	if reader != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	status, body, err := d.send(req, spec.Endpoint)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, classifyStatus(status, body)
	}
	return body, nil
}

// send executes req and reads the whole body.
func (d *Dispatcher) send(req *http.Request, endpoint string) (int, []byte, error) {
	reqID := uuid.NewString()
	req.Header.Set(headerRequestID, reqID)

	log := d.log.With(
		"method", req.Method,
		"endpoint", endpoint,
		"request_id", reqID,
	)
	log.Debug("sending request", "authorized", req.Header.Get(headerAuthorization) != "")

	resp, err := d.client.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err)
		return 0, nil, &CustomError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 100 || resp.StatusCode > 999 {
		log.Warn("response without valid status", "status", resp.StatusCode)
		return 0, nil, ErrInvalidResponse
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("read response body", "status", resp.StatusCode, "error", err)
		return 0, nil, &CustomError{Message: transportMessage(err), Err: err}
	}

	log.Debug("response received", "status", resp.StatusCode, "bytes", len(body))
	return resp.StatusCode, body, nil
}

func (d *Dispatcher) buildURL(endpoint string) (*url.URL, error) {
	u, err := url.Parse(d.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, u.String())
	}
	return u, nil
}

// classifyStatus maps a non-2xx response onto the error taxonomy.
// 401 never leaks the body.
func classifyStatus(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return &CustomError{Message: MsgAuthFailed}
	}

	var payload struct {
		Detail *string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		return &CustomError{Message: *payload.Detail}
	}
	return &ServerError{StatusCode: status, Body: body}
}

func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
