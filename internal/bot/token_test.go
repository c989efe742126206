package bot

import (
	"errors"
	"testing"
)

func TestParseActionTokenRoundTrip(t *testing.T) {
	token, err := ParseActionToken("generate:shopee:42")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if token.Kind != ActionGenerate || token.MerchantSlug != "shopee" || token.OriginalID != 42 {
		t.Fatalf("token = %+v", token)
	}
	if got := token.String(); got != "generate:shopee:42" {
		t.Errorf("reserialized = %q, want original", got)
	}
}

func TestParseActionTokenRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"two fields", "generate:shopee"},
		{"four fields", "generate:shopee:42:extra"},
		{"unknown kind", "destroy:shopee:42"},
		{"bad slug chars", "generate:Sho pee!:42"},
		{"uppercase slug", "generate:Shopee:42"},
		{"non-numeric id", "generate:shopee:abc"},
		{"zero id", "generate:shopee:0"},
		{"negative id", "generate:shopee:-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseActionToken(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseActionToken(%q) err = %v, want ErrInvalidToken", tt.raw, err)
			}
		})
	}
}
