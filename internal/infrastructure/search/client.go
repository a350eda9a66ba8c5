package search

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/oksasatya/bizbridge-auth/config"
)

// NewClient builds the Elasticsearch client for the users index. ES_TIMEOUT
// bounds dialing and waiting for response headers.
func NewClient(cfg *config.Config) (*elasticsearch.Client, error) {
	timeout := cfg.ESTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.ESAddrs(),
		Username:   cfg.ElasticsearchUser,
		Password:   cfg.ElasticsearchPass,
		MaxRetries: 1,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: timeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		},
	})
}
