package httpgateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCallLog struct {
	entries []*models.HttpCallLog
	err     error
}

func (m *memCallLog) Create(ctx context.Context, entry *models.HttpCallLog) error {
	m.entries = append(m.entries, entry)
	return m.err
}

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/1", r.URL.Path)
		assert.Equal(t, "Peter", r.URL.Query().Get("name"))
		assert.NotEmpty(t, r.Header.Get("X-Correlation-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"Leanne Graham","username":"Bret","email":"Sincere@april.biz"}`))
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	calls := &memCallLog{}
	client := NewClient(srv.URL+"/", 5*time.Second, calls, logger)

	var user models.ExternalUser
	err := client.DoGet(context.Background(), "/users/1", url.Values{"name": {"Peter"}}, &user)
	require.NoError(t, err)

	assert.Equal(t, "Bret", user.Username)
	require.Len(t, calls.entries, 1)
	entry := calls.entries[0]
	assert.Equal(t, http.StatusOK, entry.ResponseStatusCode)
	assert.Equal(t, models.TransactionStatusSuccess, entry.ResponseStatus)
	assert.Equal(t, srv.URL+"/users/1?name=Peter", entry.RequestURL)
	assert.Contains(t, entry.ResponseBody, "Leanne Graham")

	var headers map[string][]string
	require.NoError(t, json.Unmarshal(entry.ResponseHeaders, &headers))
	assert.Equal(t, []string{"application/json"}, headers["Content-Type"])

	require.Len(t, hook.AllEntries(), 2)
	last := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, entry.CorrelationID, last.Data["correlation_id"])
	assert.Equal(t, http.StatusOK, last.Data["status"])
}

func TestDoPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var in models.ExternalUser
		assert.NoError(t, json.Unmarshal(body, &in))
		in.ID = 11
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	calls := &memCallLog{}
	client := NewClient(srv.URL, time.Second, calls, logger)

	var created models.ExternalUser
	err := client.DoPost(context.Background(), "/users", models.ExternalUser{Name: "Ervin Howell", Username: "Antonette"}, &created)
	require.NoError(t, err)

	assert.Equal(t, 11, created.ID)
	require.Len(t, calls.entries, 1)
	assert.Contains(t, calls.entries[0].RequestBody, "Antonette")
	assert.Equal(t, http.MethodPost, calls.entries[0].RequestMethod)
}

func TestDo_ErrorStatusBecomesIntegrationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	calls := &memCallLog{err: errors.New("db unavailable")}
	client := NewClient(srv.URL, time.Second, calls, logger)

	err := client.DoGet(context.Background(), "/users", nil, &[]models.ExternalUser{})

	ierr, ok := apperr.IsIntegrationError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, ierr.StatusCode)
	require.Len(t, calls.entries, 1)
	assert.Equal(t, models.TransactionStatusFailed, calls.entries[0].ResponseStatus)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Failed to persist HTTP call log" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	logger, hook := test.NewNullLogger()
	calls := &memCallLog{}
	client := NewClient(target, time.Second, calls, logger)

	err := client.DoGet(context.Background(), "/users", nil, nil)

	ierr, ok := apperr.IsIntegrationError(err)
	require.True(t, ok)
	assert.Zero(t, ierr.StatusCode)
	require.Len(t, calls.entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestDo_TruncatedResponseIsLoggedAndRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":1,"name":"Leanne`))
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	calls := &memCallLog{}
	client := NewClient(srv.URL, time.Second, calls, logger)

	err := client.DoGet(context.Background(), "/users/1", nil, &models.ExternalUser{})

	ierr, ok := apperr.IsIntegrationError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, ierr.StatusCode)
	require.Len(t, calls.entries, 1)
	entry := calls.entries[0]
	assert.Equal(t, models.TransactionStatusFailed, entry.ResponseStatus)
	assert.Equal(t, http.StatusOK, entry.ResponseStatusCode)

	last := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "Failed to read outbound HTTP response", last.Message)
	assert.Equal(t, entry.CorrelationID, last.Data["correlation_id"])
}

func TestDo_ResponseBodyIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxResponseBody+4096)))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	calls := &memCallLog{}
	client := NewClient(srv.URL, 5*time.Second, calls, logger)

	require.NoError(t, client.DoGet(context.Background(), "/blob", nil, nil))
	require.Len(t, calls.entries, 1)
	assert.Len(t, calls.entries[0].ResponseBody, maxResponseBody)
}
