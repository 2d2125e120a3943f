// Package reviewapi is the outbound client for the reviews API.
package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/customerdash/internal/domain"
	apperrors "github.com/utafrali/customerdash/pkg/errors"
	"github.com/utafrali/customerdash/pkg/httpclient"
	"github.com/utafrali/customerdash/pkg/logger"
	"github.com/utafrali/customerdash/pkg/tracing"
)

const serviceName = "reviews-api"

// maxBodyBytes bounds how much of a success payload is decoded.
const maxBodyBytes = 8 << 20

// HTTPDoer executes HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback turns a rejected request into a ServiceUnavailable
// error instead of the raw gobreaker error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("reviews API is temporarily unavailable")
}

// Client fetches a customer's reviews.
type Client struct {
	baseURL string
	doer    HTTPDoer
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewClient creates a reviews API client rooted at baseURL.
func NewClient(baseURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		logger:  logger,
		tracer:  tracing.Tracer("github.com/utafrali/customerdash/internal/reviewapi"),
	}
}

// ListByUser returns every review written by userID, in API order.
// A JSON null or any non-array payload is an error; [] is an empty result.
func (c *Client) ListByUser(ctx context.Context, userID string) (_ []domain.Review, err error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	ctx, span := c.tracer.Start(ctx, "reviewapi.ListByUser",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint := c.baseURL + "/api/reviews/user/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create reviews request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call reviews API: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	reviews, err := decodeReviews(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "reviews fetched",
		slog.String("user_id", userID),
		slog.Int("count", len(reviews)),
	)
	return reviews, nil
}

var errNotArray = errors.New("reviews payload is not a JSON array")

func decodeReviews(r io.Reader) ([]domain.Review, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read reviews response: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("decode reviews response: %w", errNotArray)
	}

	reviews := []domain.Review{}
	if err := json.Unmarshal(body, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews response: %w", err)
	}
	return reviews, nil
}

// DialCheck returns a readiness probe that opens a TCP connection to the
// host of baseURL.
func DialCheck(baseURL string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parse reviews API URL: %w", err)
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return fmt.Errorf("dial reviews API: %w", err)
		}
		return conn.Close()
	}
}
