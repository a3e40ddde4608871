// Package httpgateway calls the external user service. Every exchange is
// logged, persisted as an HttpCallLog and counted in prometheus.
package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const serviceName = "external-user-service"

// maxResponseBody caps how much of an upstream response is read and logged.
const maxResponseBody = 1 << 20

var (
	externalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_http_calls_total",
			Help: "Outbound HTTP calls by method and response status",
		},
		[]string{"method", "status"},
	)
	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_http_call_duration_seconds",
			Help:    "Outbound HTTP call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// CallLogStore is satisfied by *repository.HttpCallLogRepository.
type CallLogStore interface {
	Create(ctx context.Context, entry *models.HttpCallLog) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	calls      CallLogStore
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, calls CallLogStore, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		calls:  calls,
		logger: logger,
	}
}

// DoGet fetches path with the given query and decodes a JSON body into out.
func (c *Client) DoGet(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil, out)
}

// DoPost sends body as JSON and decodes the response into out.
func (c *Client) DoPost(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, payload, out)
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte, out any) error {
	correlationID := uuid.New().String()

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry := &models.HttpCallLog{
		CorrelationID:  correlationID,
		RequestURL:     target,
		RequestMethod:  method,
		RequestHeaders: headersJSON(req.Header),
		RequestBody:    string(payload),
		CreatedOn:      time.Now().UTC(),
	}
	log := c.logger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"method":         method,
		"url":            target,
	})
	log.WithField("request_body", entry.RequestBody).Info("Outbound HTTP request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	entry.DurationMs = elapsed.Milliseconds()
	externalCallDuration.WithLabelValues(method).Observe(elapsed.Seconds())

	if err != nil {
		entry.ResponseStatus = models.TransactionStatusFailed
		externalCallsTotal.WithLabelValues(method, "error").Inc()
		log.WithError(err).WithField("duration_ms", entry.DurationMs).Error("Outbound HTTP request failed")
		c.record(ctx, entry)
		return apperr.NewIntegrationError(serviceName, 0, err)
	}
	defer resp.Body.Close()

	entry.ResponseStatusCode = resp.StatusCode
	entry.ResponseHeaders = headersJSON(resp.Header)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		entry.ResponseStatus = models.TransactionStatusFailed
		entry.ResponseBody = string(body)
		externalCallsTotal.WithLabelValues(method, "error").Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"status":      resp.StatusCode,
			"duration_ms": entry.DurationMs,
		}).Error("Failed to read outbound HTTP response")
		c.record(ctx, entry)
		return apperr.NewIntegrationError(serviceName, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	entry.ResponseBody = string(body)
	externalCallsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	fields := logrus.Fields{
		"status":        resp.StatusCode,
		"duration_ms":   entry.DurationMs,
		"response_body": entry.ResponseBody,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		entry.ResponseStatus = models.TransactionStatusFailed
		log.WithFields(fields).Warn("Outbound HTTP request returned an error status")
		c.record(ctx, entry)
		return apperr.NewIntegrationError(serviceName, resp.StatusCode, fmt.Errorf("unexpected response: %s", strings.TrimSpace(entry.ResponseBody)))
	}

	entry.ResponseStatus = models.TransactionStatusSuccess
	log.WithFields(fields).Info("Outbound HTTP response")
	c.record(ctx, entry)

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.NewIntegrationError(serviceName, resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return nil
}

func (c *Client) record(ctx context.Context, entry *models.HttpCallLog) {
	if c.calls == nil {
		return
	}
	if err := c.calls.Create(ctx, entry); err != nil {
		c.logger.WithError(err).WithField("correlation_id", entry.CorrelationID).Warn("Failed to persist HTTP call log")
	}
}

func headersJSON(h http.Header) datatypes.JSON {
	raw, err := json.Marshal(h)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
