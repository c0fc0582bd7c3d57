package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"finn_scraper/models"
)

const listingPage = `<!DOCTYPE html>
<html>
<head><title>Fin leilighet på Grünerløkka | FINN eiendom</title></head>
<body>
<nav>
  <a href="/">Forsiden</a>
  <a href="/realestate">Eiendom</a>
  <a href="/realestate/oslo">Oslo</a>
  <a href="/realestate/oslo/grunerlokka">Grünerløkka</a>
</nav>
<p>Kart med kartnål Osterhaus' gate 12, 0183 Oslo</p>
<p>Prisantydning 2 500 000 kr</p>
<p>Totalpris 2 600 000 kr</p>
<p>Omkostninger 100 000 kr</p>
<p>Felleskost/mnd. 3 500 kr</p>
<h2>Nøkkelinfo</h2>
<p>Boligtype Leilighet</p>
<p>Eieform Eier (Selveier)</p>
<p>Soverom 2</p>
<p>Internt bruksareal 65 m² (BRA-i)Bruksareal 70 m²</p>
<p>Eksternt bruksareal 5 m² (BRA-e)</p>
<p>Etasje 3</p>
<p>Byggeår 1962</p>
<p>Energimerking D</p>
<section><div data-testid="local-area-name">Grünerløkka</div></section>
<img id="image-0" srcset="https://img.finn.no/1.jpg 800w, https://img.finn.no/1-small.jpg 400w">
<img id="image-1" src="https://img.finn.no/2.jpg">
</body>
</html>`

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultSpec())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}

func TestEngineParse_FullPage(t *testing.T) {
	engine := newTestEngine(t)
	rec := engine.Parse("123456789", parseDoc(t, listingPage))

	if rec.FinnCode != "123456789" {
		t.Fatalf("unexpected finn code %s", rec.FinnCode)
	}
	if rec.Title != "Fin leilighet på Grünerløkka" {
		t.Fatalf("unexpected title %q", rec.Title)
	}
	if rec.Address != "Osterhaus' gate 12, 0183 Oslo" {
		t.Fatalf("unexpected address %q", rec.Address)
	}
	if rec.AskingPrice != "2500000" {
		t.Fatalf("expected asking price 2500000, got %q", rec.AskingPrice)
	}
	if rec.TotalPrice != "2600000" {
		t.Fatalf("expected total price 2600000, got %q", rec.TotalPrice)
	}
	if rec.Costs != "100000" {
		t.Fatalf("expected costs 100000, got %q", rec.Costs)
	}
	if rec.MonthlyFee != "3500" {
		t.Fatalf("expected monthly fee 3500, got %q", rec.MonthlyFee)
	}
	if rec.JointDebt != models.NotFound {
		t.Fatalf("expected joint debt sentinel, got %q", rec.JointDebt)
	}
	if rec.PropertyType != "Leilighet" {
		t.Fatalf("unexpected property type %q", rec.PropertyType)
	}
	if rec.Ownership != "Eier (Selveier)" {
		t.Fatalf("unexpected ownership %q", rec.Ownership)
	}
	if rec.Bedrooms != "2" {
		t.Fatalf("expected 2 bedrooms, got %q", rec.Bedrooms)
	}
	if rec.InternalArea != "65" {
		t.Fatalf("expected internal area 65, got %q", rec.InternalArea)
	}
	if rec.UsableArea != "70" {
		t.Fatalf("expected usable area 70, got %q", rec.UsableArea)
	}
	if rec.ExternalUsableArea != "5" {
		t.Fatalf("expected external usable area 5, got %q", rec.ExternalUsableArea)
	}
	if rec.Floor != "3" {
		t.Fatalf("expected floor 3, got %q", rec.Floor)
	}
	if rec.BuildYear != "1962" {
		t.Fatalf("expected build year 1962, got %q", rec.BuildYear)
	}
	if rec.LocalArea != "grünerløkka" {
		t.Fatalf("unexpected local area %q", rec.LocalArea)
	}
	if rec.AreaName != "Grünerløkka" {
		t.Fatalf("unexpected breadcrumb area %q", rec.AreaName)
	}
	if len(rec.Images) != 3 {
		t.Fatalf("expected 3 image slots, got %d", len(rec.Images))
	}
	if rec.Images[0] != "https://img.finn.no/1.jpg" {
		t.Fatalf("unexpected first image %q", rec.Images[0])
	}
	if rec.Images[1] != "https://img.finn.no/2.jpg" {
		t.Fatalf("unexpected second image %q", rec.Images[1])
	}
	if rec.Images[2] != models.NotFound {
		t.Fatalf("expected sentinel for missing image, got %q", rec.Images[2])
	}
}

func TestEngineParse_EmptyPage(t *testing.T) {
	engine := newTestEngine(t)
	rec := engine.Parse("987654321", parseDoc(t, `<html><body><p>Ingen data</p></body></html>`))

	if rec.Title != models.NotFound {
		t.Fatalf("expected title sentinel, got %q", rec.Title)
	}
	if rec.AskingPrice != models.NotFound {
		t.Fatalf("expected asking price sentinel, got %q", rec.AskingPrice)
	}
	if rec.PropertyType != models.NotFound {
		t.Fatalf("expected property type sentinel, got %q", rec.PropertyType)
	}
	for i, img := range rec.Images {
		if img != models.NotFound {
			t.Fatalf("image %d: expected sentinel, got %q", i, img)
		}
	}
}

func TestEngineParse_TitleFallbackPattern(t *testing.T) {
	engine := newTestEngine(t)
	rec := engine.Parse("1", parseDoc(t,
		`<html><head><title>Enebolig med utsikt | annet nettsted</title></head><body></body></html>`))

	if rec.Title != "Enebolig med utsikt" {
		t.Fatalf("expected fallback title, got %q", rec.Title)
	}
}

func TestEnginePostProcess_Numeric(t *testing.T) {
	engine := newTestEngine(t)

	cases := []struct {
		in   string
		want string
	}{
		{"2 500 000 kr", "2500000"},
		{"65 m²", "65"},
		{"kr", models.NotFound},
		{"", models.NotFound},
	}
	for _, tc := range cases {
		if got := engine.postProcess("asking_price", tc.in); got != tc.want {
			t.Fatalf("postProcess(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestEnginePostProcess_NonNumericKeepsText(t *testing.T) {
	engine := newTestEngine(t)
	if got := engine.postProcess("ownership", " Eier (Selveier) "); got != "Eier (Selveier)" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestNewEngine_BadPattern(t *testing.T) {
	spec := DefaultSpec()
	spec.TopFields["broken"] = PatternSpec{Pattern: `([`}
	if _, err := NewEngine(spec); err == nil {
		t.Fatalf("expected compile error")
	}
}
