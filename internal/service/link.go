package service

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
)

// PlaceholderToken marks the requester-id slot in a merchant tracking template.
const PlaceholderToken = "{{USER_ID}}"

const (
	utmSource      = "telegram"
	utmMedium      = "bot"
	utmCampaign    = "heymax_shop_bot"
	tokenNamespace = "tg"
)

// ErrTemplatePlaceholder reports a catalog template with zero or multiple
// requester placeholders. This is a data-integrity fault: synthesis degrades
// to the literal template and the caller is expected to log it.
var ErrTemplatePlaceholder = errors.New("tracking template must contain exactly one user id placeholder")

// SynthesizedLink is a requester-attributed outbound URL plus the correlation
// key stored with its LinkGeneration record. The token is never parsed back.
type SynthesizedLink struct {
	URL           string
	TrackingToken string
}

// SynthesizeLink substitutes the requester id into the merchant template and
// appends the canonical attribution parameters. It is a pure function of
// (requesterID, merchant, at): no I/O, no shared state. A non-nil error means
// the template was malformed; the returned link is still usable.
func SynthesizeLink(requesterID int64, merchant model.Merchant, at time.Time) (SynthesizedLink, error) {
	millis := at.UnixMilli()
	token := fmt.Sprintf("%s-%d-%s-%d", tokenNamespace, requesterID, merchant.Slug, millis)

	base := merchant.TrackingTemplate
	var synthErr error
	if strings.Count(base, PlaceholderToken) == 1 {
		base = strings.Replace(base, PlaceholderToken, strconv.FormatInt(requesterID, 10), 1)
	} else {
		synthErr = ErrTemplatePlaceholder
	}

	u, err := url.Parse(base)
	if err != nil {
		// Unparseable templates degrade the same way as placeholder faults.
		return SynthesizedLink{URL: base, TrackingToken: token}, ErrTemplatePlaceholder
	}

	q := u.Query()
	q.Set("utm_source", utmSource)
	q.Set("utm_medium", utmMedium)
	q.Set("utm_campaign", utmCampaign)
	q.Set("utm_content", merchant.Slug)
	q.Set("utm_term", fmt.Sprintf("user_%d", requesterID))
	// Wall-clock millis keep two synthesis calls for the same requester and
	// merchant from ever colliding.
	q.Set("ref", strconv.FormatInt(millis, 10))
	u.RawQuery = q.Encode()

	return SynthesizedLink{URL: u.String(), TrackingToken: token}, synthErr
}
