package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/service"
)

// Terminal states of the viral callback transition.
const (
	outcomeCompleted       = "completed"
	outcomeRejected        = "rejected"
	outcomeMerchantMissing = "merchant_missing"
)

// Edge kind recorded for button-triggered interactions.
const interactionKindCallback = "callback"

const (
	ackInvalid   = "😕 That button didn't work. Try searching again."
	ackNotFound  = "😕 Merchant not found. It may have left the catalog."
	ackCompleted = "✅ Your personal link is ready!"
)

// handleCallback runs the single-transition viral state machine:
// parse → resolve → record edge → re-synthesize → acknowledge.
// There are no persisted intermediate states and no retries.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil {
		return nil
	}

	token, err := ParseActionToken(cb.Data)
	if err != nil {
		log.Printf("[info] callback rejected user=%d data=%q: %v", cb.From.ID, cb.Data, err)
		b.metrics.RecordViralCallback(outcomeRejected)
		b.ackCallback(cb.ID, ackInvalid)
		return nil
	}

	merchant, err := b.merchants.FindBySlug(ctx, token.MerchantSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[info] callback merchant missing user=%d slug=%s", cb.From.ID, token.MerchantSlug)
			b.metrics.RecordViralCallback(outcomeMerchantMissing)
			b.ackCallback(cb.ID, ackNotFound)
			return nil
		}
		b.ackCallback(cb.ID, ackInvalid)
		return fmt.Errorf("resolve merchant %q: %w", token.MerchantSlug, err)
	}

	if _, err := b.ensureUser(ctx, cb.From); err != nil {
		log.Printf("[warn] ensure user %d: %v", cb.From.ID, err)
	}

	var chatID *int64
	if cb.Message != nil && cb.Message.Chat != nil {
		id := cb.Message.Chat.ID
		chatID = &id
	}

	// Viral tracking is analytics, not correctness: a failed edge write is
	// logged and the flow continues.
	edge := &model.ViralInteraction{
		OriginalID:   token.OriginalID,
		ViralID:      cb.From.ID,
		MerchantSlug: token.MerchantSlug,
		ChatID:       chatID,
		Kind:         interactionKindCallback,
	}
	if err := b.events.RecordViralInteraction(ctx, edge); err != nil {
		log.Printf("[warn] record viral edge original=%d viral=%d: %v", token.OriginalID, cb.From.ID, err)
	}

	link, synthErr := service.SynthesizeLink(cb.From.ID, *merchant, time.Now())
	if synthErr != nil {
		log.Printf("[warn] template fault merchant=%s: %v", merchant.Slug, synthErr)
	}

	b.recordLinkGeneration(ctx, cb.From.ID, merchant.Slug, link, "", 1)
	if err := b.users.IncrementLinkCount(ctx, cb.From.ID, 1); err != nil {
		log.Printf("[warn] increment link count user=%d: %v", cb.From.ID, err)
	}

	if chatID != nil {
		msg := tgbotapi.NewMessage(*chatID, composeViralMessage(*merchant, link, cb.From.UserName, b.username()))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		msg.ReplyMarkup = linkKeyboard(*merchant, link, cb.From.ID)
		if _, err := b.api.Send(msg); err != nil {
			// Delivery faults are surfaced, not retried here.
			return fmt.Errorf("send viral message: %w", err)
		}
	}

	b.ackCallback(cb.ID, ackCompleted)
	b.metrics.RecordViralCallback(outcomeCompleted)
	log.Printf("[info] viral link generated original=%d viral=%d merchant=%s", token.OriginalID, cb.From.ID, merchant.Slug)
	return nil
}

func (b *Bot) ackCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Printf("callback ack: %v", err)
	}
}
