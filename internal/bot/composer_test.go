package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/service"
)

func TestExampleSpend(t *testing.T) {
	tests := []struct {
		rate float64
		want int
	}{
		{8.0, 100},
		{5.0, 100},
		{4.9, 200},
		{1.0, 200},
	}
	for _, tt := range tests {
		if got := exampleSpend(tt.rate); got != tt.want {
			t.Errorf("exampleSpend(%v) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestComposeLinkMessage(t *testing.T) {
	m := model.Merchant{Slug: "pelago", Name: "Pelago", BaseMPD: 8.0}
	link, _ := service.SynthesizeLink(42, model.Merchant{
		Slug:             "pelago",
		Name:             "Pelago",
		TrackingTemplate: "https://pelago.com/?afid={{USER_ID}}",
		BaseMPD:          8.0,
	}, time.Unix(1724567890, 0))

	text := composeLinkMessage(m, link)
	if !strings.Contains(text, "Pelago") {
		t.Error("message missing merchant name")
	}
	if !strings.Contains(text, "$100") {
		t.Error("high-rate merchant should use the $100 worked example")
	}
	if !strings.Contains(text, "800 Max Miles") {
		t.Error("worked example arithmetic missing (100 * 8.0)")
	}
	if !strings.Contains(text, link.URL) {
		t.Error("message missing the synthesized url")
	}
}

func TestLinkKeyboardRows(t *testing.T) {
	m := model.Merchant{Slug: "pelago", Name: "Pelago", BaseMPD: 8.0}
	link := service.SynthesizedLink{URL: "https://pelago.com/?afid=42", TrackingToken: "tg-42-pelago-1"}

	kb := linkKeyboard(m, link, 42)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
	}

	shop := kb.InlineKeyboard[0][0]
	if shop.URL == nil || *shop.URL != link.URL {
		t.Errorf("row 1 should open the synthesized url, got %+v", shop)
	}

	share := kb.InlineKeyboard[1][0]
	if share.CallbackData == nil {
		t.Fatal("row 2 missing callback data")
	}
	if *share.CallbackData != "generate:pelago:42" {
		t.Errorf("callback data = %q, want generate:pelago:42", *share.CallbackData)
	}
}

func TestComposeViralMessageAcknowledgesChain(t *testing.T) {
	m := model.Merchant{Slug: "pelago", Name: "Pelago", BaseMPD: 8.0}
	link := service.SynthesizedLink{URL: "https://pelago.com/?afid=2002"}

	text := composeViralMessage(m, link, "bob", "heymax_shop_bot")
	if !strings.Contains(text, "@bob") {
		t.Error("viral message should name the new requester")
	}
	if !strings.Contains(text, "@heymax_shop_bot") {
		t.Error("viral message should name the bot for further sharing")
	}
	if !strings.Contains(text, link.URL) {
		t.Error("viral message missing the new synthesized url")
	}
}

func TestComposeNoMatchResult(t *testing.T) {
	article := composeNoMatchResult("id1", []string{"pelago", "klook"})
	if article.Description == "" || !strings.Contains(article.Description, "pelago") {
		t.Errorf("no-match description should carry suggestions, got %q", article.Description)
	}
}
