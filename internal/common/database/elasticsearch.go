package database

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// sweepReportMapping types the fields dashboards filter on. Everything else is
// mapped dynamically.
const sweepReportMapping = `{
  "mappings": {
    "properties": {
      "runId":            {"type": "keyword"},
      "runDate":          {"type": "date", "format": "yyyy-MM-dd"},
      "startedAt":        {"type": "date"},
      "state":            {"type": "keyword"},
      "provider":         {"type": "keyword"},
      "documentsChecked": {"type": "integer"},
      "emailsSent":       {"type": "integer"},
      "emailsFailed":     {"type": "integer"},
      "emailsSkipped":    {"type": "integer"},
      "companiesSkipped": {"type": "integer"},
      "durationMs":       {"type": "long"}
    }
  }
}`

// ElasticsearchClient holds the client used to index sweep reports.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the sweep report index with its mapping unless it
// already exists.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context, index string) error {
	res, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("elasticsearch index check %s: %s", index, res.Status())
	}

	res, err = c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(sweepReportMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// A concurrent replica may have created it first.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("elasticsearch create index %s: %s: %s", index, res.Status(), body)
	}
	return nil
}
