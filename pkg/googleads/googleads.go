// Package googleads fetches campaign spend from the Google Ads REST API
// using searchStream and GAQL.
package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/resilience"
)

const (
	defaultBaseURL = "https://googleads.googleapis.com/v18"

	channelTypeLocalServices = "LOCAL_SERVICES"
)

// Client performs Google Ads API operations.
type Client interface {
	Connected() bool
	FetchCampaigns(ctx context.Context, startDate, endDate string, activeOnly bool) ([]model.CampaignCost, error)
	ChildAccounts(ctx context.Context) ([]Account, error)
}

// Account is a client account visible under the manager account.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Manager bool   `json:"manager"`
}

// Config holds the credentials for the Google Ads API.
type Config struct {
	DeveloperToken  string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	LoginCustomerID string
	// CustomerIDs are the accounts to query. When empty they are discovered
	// from the manager account on first use.
	CustomerIDs []string
}

// Configured reports whether enough credentials are present to build a client.
func (c Config) Configured() bool {
	return c.DeveloperToken != "" && c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Option configures the client.
type Option func(*restClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *restClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the OAuth-derived http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *restClient) { c.http = hc }
}

// WithRateLimit sets a per-second rate limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *restClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the retry policy for API calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *restClient) { c.retry = cfg }
}

type restClient struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig

	mu       sync.Mutex
	accounts []string
}

// NewClient creates a Google Ads client. The returned client is disconnected
// when the config is incomplete.
func NewClient(cfg Config, opts ...Option) Client {
	c := &restClient{
		cfg:      cfg,
		baseURL:  defaultBaseURL,
		retry:    DefaultRetry(),
		accounts: normalizeIDs(cfg.CustomerIDs),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil && cfg.Configured() {
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
		}
		ts := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})
		c.http = oauth2.NewClient(context.Background(), ts)
		c.http.Timeout = 30 * time.Second
	}
	return c
}

// DefaultRetry is the retry policy applied to searchStream calls unless
// overridden with WithRetry.
func DefaultRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("googleads", "searchStream")
	return cfg
}

func (c *restClient) Connected() bool { return c.http != nil }

func (c *restClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type searchRow struct {
	Campaign struct {
		ID                     json.Number `json:"id"`
		Name                   string      `json:"name"`
		Status                 string      `json:"status"`
		AdvertisingChannelType string      `json:"advertisingChannelType"`
	} `json:"campaign"`
	Metrics struct {
		CostMicros  json.Number `json:"costMicros"`
		Clicks      json.Number `json:"clicks"`
		Impressions json.Number `json:"impressions"`
		Conversions float64     `json:"conversions"`
	} `json:"metrics"`
	Customer struct {
		ID              json.Number `json:"id"`
		DescriptiveName string      `json:"descriptiveName"`
	} `json:"customer"`
	CustomerClient struct {
		ID              json.Number `json:"id"`
		DescriptiveName string      `json:"descriptiveName"`
		Manager         bool        `json:"manager"`
	} `json:"customerClient"`
}

type searchBatch struct {
	Results []searchRow `json:"results"`
}

// FetchCampaigns pulls per-campaign spend for the date range across every
// configured (or discovered) customer account. Cost is converted from micros
// to dollars.
func (c *restClient) FetchCampaigns(ctx context.Context, startDate, endDate string, activeOnly bool) ([]model.CampaignCost, error) {
	if c.http == nil {
		return nil, eris.New("googleads: not connected")
	}

	accounts, err := c.customerIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, eris.New("googleads: no customer accounts configured or discovered")
	}

	query := fmt.Sprintf(`SELECT
		campaign.id, campaign.name, campaign.status, campaign.advertising_channel_type,
		metrics.cost_micros, metrics.clicks, metrics.impressions, metrics.conversions,
		customer.id, customer.descriptive_name
		FROM campaign
		WHERE segments.date BETWEEN '%s' AND '%s'`, startDate, endDate)
	if activeOnly {
		query += " AND campaign.status = 'ENABLED'"
	}

	results := make([][]model.CampaignCost, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range accounts {
		g.Go(func() error {
			rows, err := c.searchStream(gctx, id, query)
			if err != nil {
				return eris.Wrapf(err, "googleads: fetch campaigns for customer %s", id)
			}
			costs := make([]model.CampaignCost, 0, len(rows))
			for _, row := range rows {
				costs = append(costs, model.CampaignCost{
					ID:           row.Campaign.ID.String(),
					Name:         row.Campaign.Name,
					Status:       row.Campaign.Status,
					Cost:         float64(asInt64(row.Metrics.CostMicros)) / 1e6,
					Clicks:       asInt64(row.Metrics.Clicks),
					Impressions:  asInt64(row.Metrics.Impressions),
					Conversions:  row.Metrics.Conversions,
					ChannelType:  row.Campaign.AdvertisingChannelType,
					CustomerID:   row.Customer.ID.String(),
					CustomerName: row.Customer.DescriptiveName,
					IsLSA:        row.Campaign.AdvertisingChannelType == channelTypeLocalServices,
				})
			}
			results[i] = costs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.CampaignCost
	for _, costs := range results {
		all = append(all, costs...)
	}
	return all, nil
}

// ChildAccounts lists the non-manager client accounts reachable from the
// login (manager) customer.
func (c *restClient) ChildAccounts(ctx context.Context) ([]Account, error) {
	if c.http == nil {
		return nil, eris.New("googleads: not connected")
	}
	if c.cfg.LoginCustomerID == "" {
		return nil, eris.New("googleads: login customer id required for account discovery")
	}

	const query = `SELECT
		customer_client.id, customer_client.descriptive_name, customer_client.manager
		FROM customer_client
		WHERE customer_client.level <= 1 AND customer_client.status = 'ENABLED'`

	rows, err := c.searchStream(ctx, normalizeID(c.cfg.LoginCustomerID), query)
	if err != nil {
		return nil, eris.Wrap(err, "googleads: list child accounts")
	}

	accounts := make([]Account, 0, len(rows))
	for _, row := range rows {
		acct := Account{
			ID:      row.CustomerClient.ID.String(),
			Name:    row.CustomerClient.DescriptiveName,
			Manager: row.CustomerClient.Manager,
		}
		if acct.ID == "" || acct.Manager {
			continue
		}
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// customerIDs returns the configured accounts or discovers them once from
// the manager account.
func (c *restClient) customerIDs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	cached := c.accounts
	c.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}

	children, err := c.ChildAccounts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(children))
	for _, a := range children {
		ids = append(ids, a.ID)
	}

	c.mu.Lock()
	c.accounts = ids
	c.mu.Unlock()
	return ids, nil
}

// searchStream posts a GAQL query and retries on transient failures
// (429, 5xx, timeouts).
func (c *restClient) searchStream(ctx context.Context, customerID, query string) ([]searchRow, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]searchRow, error) {
		return c.searchStreamOnce(ctx, customerID, query)
	})
}

func (c *restClient) searchStreamOnce(ctx context.Context, customerID, query string) ([]searchRow, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "googleads: rate limit")
	}

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, eris.Wrap(err, "googleads: marshal request")
	}

	url := fmt.Sprintf("%s/customers/%s/googleAds:searchStream", c.baseURL, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "googleads: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", c.cfg.DeveloperToken)
	if c.cfg.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", normalizeID(c.cfg.LoginCustomerID))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "googleads: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "googleads: read response")
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("googleads: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	// searchStream returns a JSON array of result batches.
	var batches []searchBatch
	if err := json.Unmarshal(respBody, &batches); err != nil {
		return nil, eris.Wrap(err, "googleads: unmarshal response")
	}

	var rows []searchRow
	for _, b := range batches {
		rows = append(rows, b.Results...)
	}
	return rows, nil
}

// normalizeID strips the dashes Google Ads displays in customer ids.
func normalizeID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := normalizeID(id); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func asInt64(n json.Number) int64 {
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return v
}
