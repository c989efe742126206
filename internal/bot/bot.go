package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jaevor/go-nanoid"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/metrics"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/repository"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/service"
)

const inlineResultIDLength = 12

// Search result kinds reported to metrics.
const (
	searchMatched = "matched"
	searchPopular = "popular"
	searchNoMatch = "no_match"
)

// telegramClient is the slice of the Telegram API the handlers need.
// *tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetMe() (tgbotapi.User, error)
}

// Bot routes inbound updates into the search and viral flows.
type Bot struct {
	api       telegramClient
	poller    *tgbotapi.BotAPI
	users     *repository.UserRepository
	merchants *repository.MerchantRepository
	events    *repository.EventRepository
	catalog   *service.CatalogService
	metrics   *metrics.BotMetrics
	resultID  func() string

	// Lazily fetched bot handle. Duplicate fetches are harmless: every
	// writer computes the same value.
	selfMu   sync.Mutex
	selfName string
}

func New(api *tgbotapi.BotAPI, users *repository.UserRepository, merchants *repository.MerchantRepository, events *repository.EventRepository, catalog *service.CatalogService, botMetrics *metrics.BotMetrics) (*Bot, error) {
	b, err := newBot(api, users, merchants, events, catalog, botMetrics)
	if err != nil {
		return nil, err
	}
	b.poller = api
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return b, nil
}

func newBot(api telegramClient, users *repository.UserRepository, merchants *repository.MerchantRepository, events *repository.EventRepository, catalog *service.CatalogService, botMetrics *metrics.BotMetrics) (*Bot, error) {
	gen, err := nanoid.Standard(inlineResultIDLength)
	if err != nil {
		return nil, fmt.Errorf("create result id generator: %w", err)
	}
	return &Bot{
		api:       api,
		users:     users,
		merchants: merchants,
		events:    events,
		catalog:   catalog,
		metrics:   botMetrics,
		resultID:  gen,
	}, nil
}

// Start begins polling updates until ctx is cancelled. Used when no webhook
// URL is configured.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.poller.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.poller.StopReceivingUpdates()
	}()

	for update := range updates {
		if err := b.HandleUpdate(ctx, update); err != nil {
			log.Printf("handle update: %v", err)
			b.metrics.RecordWebhookError()
		}
	}

	return nil
}

// HandleUpdate dispatches one inbound update. Each update is handled as an
// independent, stateless request.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.InlineQuery != nil:
		return b.handleInlineQuery(ctx, update.InlineQuery)
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return b.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (b *Bot) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) error {
	if q.From == nil {
		return nil
	}
	started := time.Now()

	if _, err := b.ensureUser(ctx, q.From); err != nil {
		log.Printf("[warn] ensure user %d: %v", q.From.ID, err)
	}

	result, err := b.catalog.Search(ctx, q.Query)
	if err != nil {
		// Degrade to the suggestion sentinel rather than an empty answer.
		log.Printf("[warn] catalog search %q: %v", q.Query, err)
		result = service.SearchResult{NoMatch: true, Suggestions: service.PopularSuggestions()}
	}

	kind := searchMatched
	var results []interface{}
	if result.NoMatch {
		kind = searchNoMatch
		results = append(results, composeNoMatchResult(b.resultID(), result.Suggestions))
	} else {
		if result.Popular {
			kind = searchPopular
		}
		now := time.Now()
		generated := int64(0)
		for _, c := range result.Items {
			link, synthErr := service.SynthesizeLink(q.From.ID, c.Merchant, now)
			if synthErr != nil {
				log.Printf("[warn] template fault merchant=%s: %v", c.Merchant.Slug, synthErr)
			}
			results = append(results, composeInlineResult(b.resultID(), c, link, q.From.ID))

			b.recordLinkGeneration(ctx, q.From.ID, c.Merchant.Slug, link, q.Query, len(result.Items))
			generated++
		}
		if generated > 0 {
			if err := b.users.IncrementLinkCount(ctx, q.From.ID, generated); err != nil {
				log.Printf("[warn] increment link count user=%d: %v", q.From.ID, err)
			}
		}
	}

	b.recordSearchEvent(ctx, q.Query, len(results), time.Since(started))

	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     answerCacheSeconds,
		IsPersonal:    true,
	}
	if _, err := b.api.Request(answer); err != nil {
		return fmt.Errorf("answer inline query: %w", err)
	}

	b.metrics.RecordSearch(kind, time.Since(started).Seconds())
	log.Printf("[info] inline query answered user=%d query=%q results=%d", q.From.ID, q.Query, len(results))
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		log.Printf("[warn] ensure user %d: %v", msg.From.ID, err)
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			return b.sendText(msg.Chat.ID, composeHelpMessage(b.username()))
		default:
			return b.sendText(msg.Chat.ID, "I don't know that command. Send a merchant name or /help.")
		}
	}

	query := strings.TrimSpace(msg.Text)
	if query == "" {
		return nil
	}
	return b.answerDirectSearch(ctx, msg.Chat.ID, msg.From.ID, query)
}

// answerDirectSearch serves the plain-message flow: the text is treated as a
// search and the best match is returned with the share button.
func (b *Bot) answerDirectSearch(ctx context.Context, chatID, requesterID int64, query string) error {
	started := time.Now()
	result, err := b.catalog.Search(ctx, query)
	if err != nil {
		log.Printf("[warn] catalog search %q: %v", query, err)
		result = service.SearchResult{NoMatch: true, Suggestions: service.PopularSuggestions()}
	}

	if result.NoMatch {
		b.metrics.RecordSearch(searchNoMatch, time.Since(started).Seconds())
		text := fmt.Sprintf(
			"😕 No merchants matched «%s».\nTry one of these: <b>%s</b>",
			escape(query), escape(strings.Join(result.Suggestions, ", ")),
		)
		return b.sendText(chatID, text)
	}

	top := result.Items[0]
	link, synthErr := service.SynthesizeLink(requesterID, top.Merchant, time.Now())
	if synthErr != nil {
		log.Printf("[warn] template fault merchant=%s: %v", top.Merchant.Slug, synthErr)
	}

	b.recordLinkGeneration(ctx, requesterID, top.Merchant.Slug, link, query, len(result.Items))
	if err := b.users.IncrementLinkCount(ctx, requesterID, 1); err != nil {
		log.Printf("[warn] increment link count user=%d: %v", requesterID, err)
	}
	b.recordSearchEvent(ctx, query, len(result.Items), time.Since(started))
	b.metrics.RecordSearch(searchMatched, time.Since(started).Seconds())

	reply := tgbotapi.NewMessage(chatID, composeLinkMessage(top.Merchant, link))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.DisableWebPagePreview = true
	reply.ReplyMarkup = linkKeyboard(top.Merchant, link, requesterID)
	if _, err := b.api.Send(reply); err != nil {
		return fmt.Errorf("send search reply: %w", err)
	}
	return nil
}

// recordLinkGeneration appends the LinkGeneration fact. Persistence here is
// analytics, not correctness: failures are logged and the reply proceeds.
func (b *Bot) recordLinkGeneration(ctx context.Context, userID int64, slug string, link service.SynthesizedLink, query string, resultCount int) {
	var term *string
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		term = &trimmed
	}
	event := &model.LinkGeneration{
		UserID:        userID,
		MerchantSlug:  slug,
		URL:           link.URL,
		SearchTerm:    term,
		ResultCount:   resultCount,
		TrackingToken: link.TrackingToken,
	}
	if err := b.events.RecordLinkGeneration(ctx, event); err != nil {
		log.Printf("[warn] record link generation user=%d merchant=%s: %v", userID, slug, err)
		return
	}
	b.metrics.RecordLinkGenerated(slug)
}

func (b *Bot) recordSearchEvent(ctx context.Context, query string, resultCount int, latency time.Duration) {
	event := &model.SearchEvent{
		EventID:     b.resultID(),
		Query:       strings.TrimSpace(query),
		ResultCount: resultCount,
		LatencyMs:   latency.Milliseconds(),
	}
	if err := b.events.RecordSearchEvent(ctx, event); err != nil {
		log.Printf("[warn] record search event: %v", err)
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

// username returns the bot's own handle, fetched at most once per process
// lifetime. Concurrent callers may race the fetch; all compute the same value.
func (b *Bot) username() string {
	b.selfMu.Lock()
	defer b.selfMu.Unlock()
	if b.selfName != "" {
		return b.selfName
	}
	me, err := b.api.GetMe()
	if err != nil {
		log.Printf("[warn] fetch bot identity: %v", err)
		return ""
	}
	b.selfName = me.UserName
	return b.selfName
}
