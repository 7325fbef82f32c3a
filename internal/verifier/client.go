package verifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/chainpay/internal/config"
)

const defaultTimeout = 10 * time.Second

// Verifier obtains a verdict for one claim.
type Verifier interface {
	Verify(ctx context.Context, req Request) Outcome
}

// Client calls the verification service over TLS pinned to a configured
// CA. TLS setup is deferred to the first Verify call; a setup failure is
// cached, and every later call reports the verifier unavailable until
// the process restarts.
type Client struct {
	cfg    config.VerifierConfig
	logger *zap.Logger

	once       sync.Once
	httpClient *http.Client
	initErr    error
}

func NewClient(cfg config.VerifierConfig, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, logger: logger.Named("verifier")}
}

func (c *Client) Verify(ctx context.Context, req Request) Outcome {
	httpClient, err := c.client()
	if err != nil {
		return Unavailable(fmt.Sprintf("verifier client setup failed: %v", err))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Unavailable(fmt.Sprintf("encode request: %v", err))
	}

	url := strings.TrimSuffix(c.cfg.Endpoint, "/") + "/v1/verify"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Unavailable(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("verification call failed",
			zap.String("external_id", req.ExternalID),
			zap.Error(err),
		)
		return Unavailable(fmt.Sprintf("verifier unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("verifier returned unexpected status",
			zap.String("external_id", req.ExternalID),
			zap.Int("status_code", resp.StatusCode),
		)
		return Unavailable(fmt.Sprintf("verifier returned HTTP %d", resp.StatusCode))
	}

	var verdict struct {
		Status           string `json:"status"`
		Explanation      string `json:"explanation"`
		PermanentFailure bool   `json:"permanent_failure"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return Unavailable(fmt.Sprintf("decode verdict: %v", err))
	}

	// A rejection must be the verifier's explicit ruling; anything we
	// cannot interpret stays retryable, and a rejection without an
	// explicit permanent_failure flag defaults to retryable too.
	switch Status(verdict.Status) {
	case StatusVerified:
		return Verified(verdict.Explanation)
	case StatusRejected:
		return Rejected(verdict.Explanation, verdict.PermanentFailure)
	case StatusUnavailable:
		return Unavailable(verdict.Explanation)
	default:
		return Unavailable(fmt.Sprintf("unrecognized verdict %q", verdict.Status))
	}
}

func (c *Client) client() (*http.Client, error) {
	c.once.Do(func() {
		pool, err := loadCertPool(c.cfg.CACertPath)
		if err != nil {
			c.initErr = err
			c.logger.Error("verifier client setup failed; all verifications will report unavailable", zap.Error(err))
			return
		}
		timeout := c.cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs:    pool,
					MinVersion: tls.VersionTLS12,
				},
			},
		}
	})
	return c.httpClient, c.initErr
}
