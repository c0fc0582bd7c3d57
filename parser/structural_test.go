package parser

import (
	"testing"

	"finn_scraper/models"
)

func TestExtractLocalArea_TopLevel(t *testing.T) {
	doc := parseDoc(t, `<html><body><div data-testid="local-area-name"> Majorstuen </div></body></html>`)
	if got := extractLocalArea(doc); got != "majorstuen" {
		t.Fatalf("expected majorstuen, got %q", got)
	}
}

func TestExtractLocalArea_NestedInSection(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<section><p>intro</p></section>
		<section><div><div data-testid="local-area-name">Frogner</div></div></section>
	</body></html>`)
	if got := extractLocalArea(doc); got != "frogner" {
		t.Fatalf("expected frogner, got %q", got)
	}
}

func TestExtractLocalArea_Missing(t *testing.T) {
	doc := parseDoc(t, `<html><body><section><p>ingenting</p></section></body></html>`)
	if got := extractLocalArea(doc); got != models.NotFound {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestExtractBreadcrumbArea_FourthLink(t *testing.T) {
	doc := parseDoc(t, `<html><body><nav>
		<a>Forsiden</a><a>Eiendom</a><a>Oslo</a><a>Sagene</a><a>Enebolig</a>
	</nav></body></html>`)
	if got := extractBreadcrumbArea(doc); got != "Sagene" {
		t.Fatalf("expected Sagene, got %q", got)
	}
}

func TestExtractBreadcrumbArea_TooFewLinks(t *testing.T) {
	doc := parseDoc(t, `<html><body><nav><a>Forsiden</a><a>Eiendom</a></nav></body></html>`)
	if got := extractBreadcrumbArea(doc); got != models.NotFound {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestExtractImageURL_SrcsetPriority(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<img id="image-0" src="https://img.finn.no/fallback.jpg"
			srcset="https://img.finn.no/big.jpg 1200w, https://img.finn.no/small.jpg 600w">
	</body></html>`)
	if got := extractImageURL(doc, 0); got != "https://img.finn.no/big.jpg" {
		t.Fatalf("expected srcset URL, got %q", got)
	}
}

func TestExtractImageURL_DataSrcset(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<img id="image-1" data-srcset="https://img.finn.no/lazy.jpg 800w">
	</body></html>`)
	if got := extractImageURL(doc, 1); got != "https://img.finn.no/lazy.jpg" {
		t.Fatalf("expected data-srcset URL, got %q", got)
	}
}

func TestExtractImageURL_SrcFallback(t *testing.T) {
	doc := parseDoc(t, `<html><body><img id="image-0" src="https://img.finn.no/plain.jpg"></body></html>`)
	if got := extractImageURL(doc, 0); got != "https://img.finn.no/plain.jpg" {
		t.Fatalf("expected src URL, got %q", got)
	}
}

func TestExtractImageURLs_MissingIndexes(t *testing.T) {
	doc := parseDoc(t, `<html><body><img id="image-0" src="https://img.finn.no/0.jpg"></body></html>`)
	urls := extractImageURLs(doc, 3)
	if len(urls) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(urls))
	}
	if urls[0] != "https://img.finn.no/0.jpg" {
		t.Fatalf("unexpected first URL %q", urls[0])
	}
	if urls[1] != models.NotFound || urls[2] != models.NotFound {
		t.Fatalf("expected sentinels for missing images, got %q and %q", urls[1], urls[2])
	}
}
