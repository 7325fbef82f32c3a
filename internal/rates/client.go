// Package rates quotes the current ETH price in USD from public
// exchange APIs. Quotes feed the trusted usd_per_eth snapshot taken at
// claim-creation time, so one exchange misreporting must not skew them;
// the client takes the median over every source that answered.
package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/smallbiznis/chainpay/internal/cache"
	"github.com/smallbiznis/chainpay/internal/config"
)

const (
	cacheKey       = "ETH/USD"
	defaultTTL     = 15 * time.Minute
	defaultTimeout = 10 * time.Second
)

// ErrNoQuotes means no source produced a usable price.
var ErrNoQuotes = errors.New("no_price_quotes")

// Client fetches and caches the ETH/USD price.
type Client struct {
	cfg        config.RatesConfig
	sources    []Source
	httpClient *http.Client
	cache      cache.Cache[string, decimal.Decimal]
	logger     *zap.Logger
}

func NewClient(cfg config.RatesConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// A disabled client still answers ad-hoc quote requests but never
	// holds a price between them.
	var store cache.Cache[string, decimal.Decimal] = cache.NewTTLCache[string, decimal.Decimal]()
	if !cfg.Enabled {
		store = cache.NoopCache[string, decimal.Decimal]{}
	}
	return &Client{
		cfg:        cfg,
		sources:    defaultSources(),
		httpClient: &http.Client{Timeout: timeout},
		cache:      store,
		logger:     logger.Named("rates"),
	}
}

// USDPerETH returns the cached median price, refreshing it when the
// cache entry has expired. It fails only when every source fails.
func (c *Client) USDPerETH(ctx context.Context) (decimal.Decimal, error) {
	if price, ok := c.cache.Get(cacheKey); ok {
		return price, nil
	}

	quotes := c.fetchQuotes(ctx)
	if len(quotes) == 0 {
		return decimal.Decimal{}, ErrNoQuotes
	}

	price := median(quotes)
	ttl := c.cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c.cache.Set(cacheKey, price, ttl)
	c.logger.Debug("refreshed ETH price",
		zap.String("usd_per_eth", price.String()),
		zap.Int("sources", len(quotes)),
	)
	return price, nil
}

func (c *Client) fetchQuotes(ctx context.Context) []decimal.Decimal {
	var (
		mu     sync.Mutex
		quotes []decimal.Decimal
		wg     sync.WaitGroup
	)
	for _, source := range c.sources {
		wg.Add(1)
		go func(source Source) {
			defer wg.Done()
			price, err := c.fetchOne(ctx, source)
			if err != nil {
				c.logger.Warn("price source failed",
					zap.String("source", source.Name),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			quotes = append(quotes, price)
			mu.Unlock()
		}(source)
	}
	wg.Wait()
	return quotes
}

func (c *Client) fetchOne(ctx context.Context, source Source) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	price, err := source.Parse(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive price %s", price)
	}
	return price, nil
}

func median(quotes []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(quotes))
	copy(sorted, quotes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}
