package match

import "testing"

func TestNormalizeURL_StripsTrackingAndNormalizes(t *testing.T) {
	t.Parallel()

	canonical, host := NormalizeURL("https://Example.COM:443/shop/item/?utm_source=abc&fbclid=123&b=2&a=1")
	if canonical != "https://example.com/shop/item?a=1&b=2" {
		t.Fatalf("unexpected canonical url: %q", canonical)
	}
	if host != "example.com" {
		t.Fatalf("unexpected host: %q", host)
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	t.Parallel()

	canonical, host := NormalizeURL("not a url")
	if canonical != "" || host != "" {
		t.Fatalf("expected empty result for invalid URL, got canonical=%q host=%q", canonical, host)
	}
}

func TestExtractCatalogKey_DPPath(t *testing.T) {
	t.Parallel()

	key := ExtractCatalogKey("https://www.amazon.com/CeraVe-Moisturizing-Cream/dp/B00TTD9BRC?th=1&psc=1")
	if key != "B00TTD9BRC" {
		t.Fatalf("unexpected catalog key: %q", key)
	}
}

func TestExtractCatalogKey_GPProductPath(t *testing.T) {
	t.Parallel()

	key := ExtractCatalogKey("https://amazon.com/gp/product/b00ttd9brc")
	if key != "B00TTD9BRC" {
		t.Fatalf("expected uppercased key, got %q", key)
	}
}

func TestExtractCatalogKey_QueryParam(t *testing.T) {
	t.Parallel()

	key := ExtractCatalogKey("https://shop.example.com/view?item=SKU-4421&color=red")
	if key != "SKU-4421" {
		t.Fatalf("unexpected catalog key: %q", key)
	}
}

func TestExtractCatalogKey_NoKey(t *testing.T) {
	t.Parallel()

	if key := ExtractCatalogKey("https://example.com/blog/top-10-moisturizers"); key != "" {
		t.Fatalf("expected no key for plain URL, got %q", key)
	}
	if key := ExtractCatalogKey(""); key != "" {
		t.Fatalf("expected no key for empty URL, got %q", key)
	}
}
