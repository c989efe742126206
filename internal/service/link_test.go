package service

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
)

var testMerchant = model.Merchant{
	Slug:             "pelago",
	Name:             "Pelago",
	TrackingTemplate: "https://www.pelago.com/en-SG/?afid={{USER_ID}}",
	BaseMPD:          8.0,
}

func TestSynthesizeLinkDeterministic(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := SynthesizeLink(42, testMerchant, at)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	second, err := SynthesizeLink(42, testMerchant, at)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	if first.URL != second.URL || first.TrackingToken != second.TrackingToken {
		t.Errorf("frozen clock must be deterministic:\n%+v\n%+v", first, second)
	}
}

func TestSynthesizeLinkDistinctInstants(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, _ := SynthesizeLink(42, testMerchant, at)
	second, _ := SynthesizeLink(42, testMerchant, at.Add(time.Millisecond))

	if first.TrackingToken == second.TrackingToken {
		t.Errorf("tokens collided across instants: %s", first.TrackingToken)
	}
	if first.URL == second.URL {
		t.Errorf("urls collided across instants: %s", first.URL)
	}
}

func TestSynthesizeLinkAttribution(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	link, err := SynthesizeLink(42, testMerchant, at)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	u, err := url.Parse(link.URL)
	if err != nil {
		t.Fatalf("parse synthesized url: %v", err)
	}
	q := u.Query()

	if got := q.Get("afid"); got != "42" {
		t.Errorf("placeholder substitution: afid = %q, want 42", got)
	}
	if got := q.Get("utm_source"); got != "telegram" {
		t.Errorf("utm_source = %q, want telegram", got)
	}
	if got := q.Get("utm_content"); got != "pelago" {
		t.Errorf("utm_content = %q, want pelago", got)
	}
	if got := q.Get("utm_term"); got != "user_42" {
		t.Errorf("utm_term = %q, want user_42", got)
	}
	if q.Get("ref") == "" {
		t.Error("ref param missing")
	}
	if strings.Contains(link.URL, PlaceholderToken) {
		t.Error("raw placeholder leaked into synthesized url")
	}
}

func TestSynthesizeLinkTokenShape(t *testing.T) {
	at := time.UnixMilli(1724567890123).UTC()
	link, _ := SynthesizeLink(42, testMerchant, at)
	want := "tg-42-pelago-1724567890123"
	if link.TrackingToken != want {
		t.Errorf("token = %q, want %q", link.TrackingToken, want)
	}
}

func TestSynthesizeLinkTemplateFaults(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		template string
	}{
		{"no placeholder", "https://example.com/shop"},
		{"two placeholders", "https://example.com/?a={{USER_ID}}&b={{USER_ID}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMerchant
			m.TrackingTemplate = tt.template

			link, err := SynthesizeLink(42, m, at)
			if !errors.Is(err, ErrTemplatePlaceholder) {
				t.Fatalf("err = %v, want ErrTemplatePlaceholder", err)
			}
			// Degraded, not broken: the literal template survives with
			// attribution appended.
			if link.URL == "" || link.TrackingToken == "" {
				t.Fatalf("degraded link unusable: %+v", link)
			}
			if !strings.Contains(link.URL, "utm_source=telegram") {
				t.Errorf("degraded link lost attribution: %s", link.URL)
			}
		})
	}
}
