package pricing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// feedEntry is a single price row from the feed API.
type feedEntry struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// feedResponse is the top-level structure of the feed API response.
type feedResponse struct {
	Prices []feedEntry `json:"prices"`
}

// FeedClient resolves prices from a remote price-feed service. Requests are
// authenticated with a short-lived JWT derived from an "id:secret" admin key.
type FeedClient struct {
	httpClient *http.Client
	baseURL    string
	adminKey   string
}

// NewFeedClient creates a price-feed client.
func NewFeedClient(baseURL, adminKey string) *FeedClient {
	return &FeedClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminKey:   adminKey,
	}
}

// UnitPrice fetches the price of a single item from the feed.
func (c *FeedClient) UnitPrice(ctx context.Context, name string) (decimal.Decimal, error) {
	token, err := c.createAdminToken()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create admin token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/prices/?name=%s", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Feed "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("%w: feed has no price for %q", ErrPriceUnknown, name)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price feed error: status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, entry := range feed.Prices {
		if strings.EqualFold(entry.Name, name) && entry.UnitPrice.IsPositive() {
			return entry.UnitPrice, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: feed returned no match for %q", ErrPriceUnknown, name)
}

// createAdminToken generates a short-lived JWT for the feed API.
func (c *FeedClient) createAdminToken() (string, error) {
	keyParts := strings.Split(c.adminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	id := keyParts[0]
	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/v1/prices/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
