package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ActionKind is the closed set of intents a reply button can carry.
type ActionKind string

const (
	// ActionGenerate asks for a fresh link attributed to the pressing user.
	ActionGenerate ActionKind = "generate"
)

// ErrInvalidToken rejects callback data that does not parse as an action
// token. The user gets a generic acknowledgement, nothing is persisted.
var ErrInvalidToken = errors.New("invalid action token")

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ActionToken is the opaque payload of a callback button:
// "<kind>:<merchant_slug>:<original_requester_id>".
type ActionToken struct {
	Kind         ActionKind
	MerchantSlug string
	OriginalID   int64
}

func (t ActionToken) String() string {
	return fmt.Sprintf("%s:%s:%d", t.Kind, t.MerchantSlug, t.OriginalID)
}

// ParseActionToken splits raw callback data into exactly three colon-delimited
// fields and validates each. Unknown kinds are rejected, never ignored.
func ParseActionToken(raw string) (ActionToken, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return ActionToken{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrInvalidToken, len(parts))
	}

	kind := ActionKind(parts[0])
	switch kind {
	case ActionGenerate:
	default:
		return ActionToken{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, parts[0])
	}

	if !slugPattern.MatchString(parts[1]) {
		return ActionToken{}, fmt.Errorf("%w: bad merchant slug %q", ErrInvalidToken, parts[1])
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return ActionToken{}, fmt.Errorf("%w: bad requester id %q", ErrInvalidToken, parts[2])
	}

	return ActionToken{Kind: kind, MerchantSlug: parts[1], OriginalID: id}, nil
}
