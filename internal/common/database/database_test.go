package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
)

func TestRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer rdb.Close()

	require.NoError(t, rdb.Ping(context.Background()))

	mr.Close()
	err := rdb.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), mr.Addr())
}

func TestPostgresPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	assert.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	err = client.Ping(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseConnectionFailed))

	assert.NoError(t, mock.ExpectationsWereMet())
}

type esRequest struct {
	method, path, body string
}

func fakeElasticsearch(t *testing.T, existsStatus int) (*ElasticsearchClient, *[]esRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []esRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, esRequest{r.Method, r.URL.Path, string(body)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(existsStatus)
		default:
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, &requests
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates missing index", func(t *testing.T) {
		client, requests := fakeElasticsearch(t, http.StatusNotFound)

		require.NoError(t, client.EnsureIndex(context.Background(), "document-expiry-sweeps"))

		require.Len(t, *requests, 2)
		create := (*requests)[1]
		assert.Equal(t, http.MethodPut, create.method)
		assert.Equal(t, "/document-expiry-sweeps", create.path)
		assert.Contains(t, create.body, `"runDate"`)
	})

	t.Run("existing index is left alone", func(t *testing.T) {
		client, requests := fakeElasticsearch(t, http.StatusOK)

		require.NoError(t, client.EnsureIndex(context.Background(), "document-expiry-sweeps"))
		assert.Len(t, *requests, 1)
	})

	t.Run("unexpected status", func(t *testing.T) {
		client, _ := fakeElasticsearch(t, http.StatusForbidden)

		assert.Error(t, client.EnsureIndex(context.Background(), "document-expiry-sweeps"))
	})
}
