package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"finn_scraper/models"
)

// extractLocalArea finds the neighborhood name element by its structural
// marker attribute. Some listing layouts nest it inside a section, so a
// per-section search is the fallback.
func extractLocalArea(doc *goquery.Document) string {
	sel := doc.Find(`div[data-testid="local-area-name"]`).First()
	if sel.Length() > 0 {
		return strings.ToLower(strings.TrimSpace(sel.Text()))
	}

	result := models.NotFound
	doc.Find("section").EachWithBreak(func(_ int, section *goquery.Selection) bool {
		tag := section.Find(`div[data-testid="local-area-name"]`).First()
		if tag.Length() > 0 {
			result = strings.ToLower(strings.TrimSpace(tag.Text()))
			return false
		}
		return true
	})
	return result
}

// extractBreadcrumbArea returns the text of the 4th link in the breadcrumb
// navigation, which carries the area name on listing pages.
func extractBreadcrumbArea(doc *goquery.Document) string {
	links := doc.Find("nav").First().Find("a")
	if links.Length() < 4 {
		return models.NotFound
	}
	return strings.TrimSpace(links.Eq(3).Text())
}

// extractImageURLs extracts the gallery image URLs for indexes 0..n-1. The
// srcset (or data-srcset) descriptor is preferred, taking the first,
// highest-resolution entry; a plain src attribute is the fallback.
func extractImageURLs(doc *goquery.Document, n int) []string {
	urls := make([]string, n)
	for i := 0; i < n; i++ {
		urls[i] = extractImageURL(doc, i)
	}
	return urls
}

func extractImageURL(doc *goquery.Document, imageID int) string {
	img := doc.Find(fmt.Sprintf(`img[id="image-%d"]`, imageID)).First()
	if img.Length() == 0 {
		return models.NotFound
	}

	srcset, ok := img.Attr("srcset")
	if !ok || srcset == "" {
		srcset, _ = img.Attr("data-srcset")
	}
	if srcset != "" {
		first := strings.SplitN(srcset, ",", 2)[0]
		url := strings.TrimSpace(strings.SplitN(strings.TrimSpace(first), " ", 2)[0])
		if url != "" {
			return url
		}
	}

	if src, ok := img.Attr("src"); ok && src != "" {
		return src
	}
	return models.NotFound
}
