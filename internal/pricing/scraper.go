package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

var priceRE = regexp.MustCompile(`\$?\s*([0-9]+(?:\.[0-9]+)?)`)

// PageScraper resolves prices by scraping a store's product search page.
// It is meant as a last-resort resolver behind the catalog and the feed.
type PageScraper struct {
	httpClient *http.Client
	searchURL  string
}

// NewPageScraper creates a scraper for the given store. searchURL receives
// the item name as its "q" query parameter.
func NewPageScraper(searchURL string) *PageScraper {
	return &PageScraper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		searchURL:  searchURL,
	}
}

// UnitPrice fetches the search page and extracts the first product price.
func (s *PageScraper) UnitPrice(ctx context.Context, name string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s?q=%s", s.searchURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch store page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("failed to fetch store page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return decimal.Zero, err
	}

	price := decimal.Zero
	doc.Find("[itemprop=price], .price, .product-price").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if content, ok := sel.Attr("content"); ok {
			if p, err := decimal.NewFromString(strings.TrimSpace(content)); err == nil && p.IsPositive() {
				price = p
				return false
			}
		}
		if m := priceRE.FindStringSubmatch(sel.Text()); m != nil {
			if p, err := decimal.NewFromString(m[1]); err == nil && p.IsPositive() {
				price = p
				return false
			}
		}
		return true
	})

	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no price found on store page for %q", ErrPriceUnknown, name)
	}
	return price, nil
}
