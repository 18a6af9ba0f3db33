package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type stubResolver struct {
	price decimal.Decimal
	err   error
	calls int
}

func (s *stubResolver) UnitPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	s.calls++
	return s.price, s.err
}

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog()

	price, err := catalog.UnitPrice(context.Background(), "Chicken Breast")
	if err != nil {
		t.Fatalf("UnitPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("8.50")) {
		t.Errorf("Expected 8.50, got %s", price)
	}

	if _, err := catalog.UnitPrice(context.Background(), "caviar"); !errors.Is(err, ErrPriceUnknown) {
		t.Errorf("Expected ErrPriceUnknown for unlisted item, got %v", err)
	}
}

func TestCatalogSetOverrides(t *testing.T) {
	catalog := NewCatalog()
	catalog.Set("bread", decimal.RequireFromString("6.00"))

	price, err := catalog.UnitPrice(context.Background(), "bread")
	if err != nil {
		t.Fatalf("UnitPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("6.00")) {
		t.Errorf("Expected overridden price 6.00, got %s", price)
	}
}

func TestChainFallsThroughOnUnknown(t *testing.T) {
	first := &stubResolver{err: fmt.Errorf("%w: not here", ErrPriceUnknown)}
	second := &stubResolver{price: decimal.RequireFromString("2.50")}

	price, err := Chain{first, second}.UnitPrice(context.Background(), "tomatoes")
	if err != nil {
		t.Fatalf("Chain lookup failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("Expected 2.50 from the second resolver, got %s", price)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("Expected both resolvers consulted once, got %d and %d", first.calls, second.calls)
	}
}

func TestChainStopsOnHardFailure(t *testing.T) {
	first := &stubResolver{err: errors.New("connection refused")}
	second := &stubResolver{price: decimal.RequireFromString("2.50")}

	_, err := Chain{first, second}.UnitPrice(context.Background(), "tomatoes")
	if err == nil || errors.Is(err, ErrPriceUnknown) {
		t.Fatalf("Expected the transport failure to surface, got %v", err)
	}
	if second.calls != 0 {
		t.Error("A hard failure must not fall through to the next resolver")
	}
}

func TestChainExhausted(t *testing.T) {
	first := &stubResolver{err: fmt.Errorf("%w: nope", ErrPriceUnknown)}

	_, err := Chain{first}.UnitPrice(context.Background(), "caviar")
	if !errors.Is(err, ErrPriceUnknown) {
		t.Errorf("Expected ErrPriceUnknown when every resolver misses, got %v", err)
	}
}

func TestFeedClientResolvesPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/prices/" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Feed ") {
			t.Errorf("Expected Feed token auth, got %q", auth)
		}
		if got := r.URL.Query().Get("name"); got != "eggs" {
			t.Errorf("Expected name=eggs, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"prices":[{"name":"Eggs","unit_price":"4.20"}]}`)
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, "keyid:aabbccddeeff")
	price, err := client.UnitPrice(context.Background(), "eggs")
	if err != nil {
		t.Fatalf("UnitPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("4.20")) {
		t.Errorf("Expected 4.20, got %s", price)
	}
}

func TestFeedClientNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, "keyid:aabbccddeeff")
	if _, err := client.UnitPrice(context.Background(), "caviar"); !errors.Is(err, ErrPriceUnknown) {
		t.Errorf("Expected ErrPriceUnknown on 404, got %v", err)
	}
}

func TestFeedClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewFeedClient(server.URL, "keyid:aabbccddeeff")
	_, err := client.UnitPrice(context.Background(), "eggs")
	if err == nil || errors.Is(err, ErrPriceUnknown) {
		t.Errorf("Expected a hard failure on 500, got %v", err)
	}
}

func TestFeedClientRejectsMalformedAdminKey(t *testing.T) {
	client := NewFeedClient("http://localhost:1", "not-an-id-secret-pair")
	if _, err := client.UnitPrice(context.Background(), "eggs"); err == nil {
		t.Error("Expected an error for a malformed admin key")
	}
}

func TestPageScraperExtractsPrice(t *testing.T) {
	page := `<html><body>
		<div class="product">
			<span class="name">Organic Tomatoes</span>
			<span class="price">$2.50 / kg</span>
		</div>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "tomatoes" {
			t.Errorf("Expected q=tomatoes, got %q", got)
		}
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	scraper := NewPageScraper(server.URL)
	price, err := scraper.UnitPrice(context.Background(), "tomatoes")
	if err != nil {
		t.Fatalf("UnitPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("Expected 2.50, got %s", price)
	}
}

func TestPageScraperPrefersContentAttribute(t *testing.T) {
	page := `<html><body>
		<meta itemprop="price" content="3.50">something else $9.99</meta>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	scraper := NewPageScraper(server.URL)
	price, err := scraper.UnitPrice(context.Background(), "apple")
	if err != nil {
		t.Fatalf("UnitPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("3.50")) {
		t.Errorf("Expected the content attribute price 3.50, got %s", price)
	}
}

func TestPageScraperNoPriceOnPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>No results.</p></body></html>`)
	}))
	defer server.Close()

	scraper := NewPageScraper(server.URL)
	if _, err := scraper.UnitPrice(context.Background(), "caviar"); !errors.Is(err, ErrPriceUnknown) {
		t.Errorf("Expected ErrPriceUnknown, got %v", err)
	}
}
