package leavestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leave-expiry/internal/domain"
	"leave-expiry/internal/events"
	leavestoreerrors "leave-expiry/internal/leavestore/errors"
	"leave-expiry/internal/shared/apperror"
	"leave-expiry/internal/shared/contextutil"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

const (
	actorHeader     = "X-Actor-ID"
	requestIDHeader = "X-Request-ID"
)

// HTTPClient talks to the leave store over its JSON API. It holds no
// per-call state.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	actor   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewHTTPClient(baseURL string, httpClient *http.Client, logger ...*zap.Logger) *HTTPClient {
	l := zap.L().Named("leavestore.http")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavestore.http")
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		actor:   events.ActorAutoExpiry,
		logger:  l,
	}
}

// WithActor sets the actor id sent with every request.
func (c *HTTPClient) WithActor(actor string) *HTTPClient {
	c.actor = actor
	return c
}

// WithRateLimit caps outgoing requests. Calls wait for a token and fail
// only when their context ends first.
func (c *HTTPClient) WithRateLimit(limit rate.Limit, burst int) *HTTPClient {
	if limit > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(limit, burst)
	}
	return c
}

type updateStatusBody struct {
	Status          domain.Status `json:"status"`
	RejectionReason string        `json:"rejectionReason"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Ok    *bool           `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *envelopeError  `json:"error"`
}

func (c *HTTPClient) FetchByOwner(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, leavestoreerrors.ErrOwnerRequired
	}
	var out []domain.LeaveRecord
	if err := c.do(ctx, http.MethodGet, "/leave?userId="+url.QueryEscape(ownerID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchPending(ctx context.Context) ([]domain.LeaveRecord, error) {
	var out []domain.LeaveRecord
	if err := c.do(ctx, http.MethodGet, "/leave/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateStatus(ctx context.Context, id string, status domain.Status, reason string) (domain.LeaveRecord, error) {
	if strings.TrimSpace(id) == "" {
		return domain.LeaveRecord{}, leavestoreerrors.ErrLeaveIDRequired
	}
	body, err := json.Marshal(updateStatusBody{Status: status, RejectionReason: reason})
	if err != nil {
		return domain.LeaveRecord{}, err
	}
	var out domain.LeaveRecord
	if err := c.do(ctx, http.MethodPut, "/leave/"+url.PathEscape(id), body, &out); err != nil {
		return domain.LeaveRecord{}, err
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return leavestoreerrors.Unavailable(err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor := contextutil.ActorID(ctx); actor != "" {
		req.Header.Set(actorHeader, actor)
	} else if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}
	if rid := contextutil.RequestID(ctx); rid != "" {
		req.Header.Set(requestIDHeader, rid)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("leave store request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return leavestoreerrors.Unavailable(err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return leavestoreerrors.Unavailable(err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Warn("leave store returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
		)
		return statusError(res.StatusCode, payload)
	}

	if err := decodeBody(payload, out); err != nil {
		return apperror.Wrap(err,
			leavestoreerrors.ErrMalformedResponse.Code,
			leavestoreerrors.ErrMalformedResponse.Message,
			leavestoreerrors.ErrMalformedResponse.HTTPStatus,
		)
	}
	return nil
}

// decodeBody accepts a bare JSON value or the {ok, data, error} envelope.
func decodeBody(payload []byte, out any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty response body")
	}
	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Ok != nil {
			if !*env.Ok {
				msg := "request not ok"
				if env.Error != nil && env.Error.Message != "" {
					msg = env.Error.Message
				}
				return fmt.Errorf("%s", msg)
			}
			trimmed = env.Data
			if len(trimmed) == 0 {
				trimmed = []byte("null")
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

func statusError(status int, payload []byte) error {
	if status == http.StatusNotFound {
		return leavestoreerrors.ErrLeaveNotFound
	}

	code := apperror.CodeInternalError
	message := http.StatusText(status)
	var env envelope
	if json.Unmarshal(payload, &env) == nil && env.Error != nil {
		if env.Error.Code != "" {
			code = env.Error.Code
		}
		if env.Error.Message != "" {
			message = env.Error.Message
		}
	}
	return apperror.Wrap(leavestoreerrors.ErrRequestFailed, code, message, status)
}
