package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/service"
)

const (
	iconShop      = "🛍"
	btnShopNow    = "🚀 Shop now"
	btnGetOwnLink = "🔗 Get my own link"

	answerCacheSeconds = 0
)

// exampleSpend picks the worked-example amount for the reward arithmetic.
// High-reward merchants get the smaller, more believable spend.
func exampleSpend(baseMPD float64) int {
	if baseMPD >= 5 {
		return 100
	}
	return 200
}

func resultTitle(m model.Merchant) string {
	return fmt.Sprintf("%s %s", iconShop, m.Name)
}

func resultDescription(c service.Candidate) string {
	if !c.Matched {
		return fmt.Sprintf("%.1f Max Miles per $1 · popular pick", c.Merchant.BaseMPD)
	}
	return fmt.Sprintf("%.1f Max Miles per $1 · match %.0f%%", c.Merchant.BaseMPD, c.Score*100)
}

// composeLinkMessage renders the primary, requester-personalized reply body.
func composeLinkMessage(m model.Merchant, link service.SynthesizedLink) string {
	spend := exampleSpend(m.BaseMPD)
	miles := float64(spend) * m.BaseMPD

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b>\n", iconShop, escape(m.Name)))
	b.WriteString(fmt.Sprintf("✨ Earn %.1f Max Miles per $1\n", m.BaseMPD))
	b.WriteString(fmt.Sprintf("💡 Spend $%d → about %.0f Max Miles\n\n", spend, miles))
	b.WriteString(fmt.Sprintf("🔗 <a href=\"%s\">Shop %s with my link</a>\n", link.URL, escape(m.Name)))
	b.WriteString("👇 Or grab your own link below")
	return strings.TrimSpace(b.String())
}

// composeViralMessage renders the second, viral-flavored reply that
// acknowledges the chain of sharing.
func composeViralMessage(m model.Merchant, link service.SynthesizedLink, viralUser string, botName string) string {
	spend := exampleSpend(m.BaseMPD)
	miles := float64(spend) * m.BaseMPD

	var b strings.Builder
	if viralUser != "" {
		b.WriteString(fmt.Sprintf("🎉 @%s just grabbed their own <b>%s</b> link!\n", escape(viralUser), escape(m.Name)))
	} else {
		b.WriteString(fmt.Sprintf("🎉 A friend just grabbed their own <b>%s</b> link!\n", escape(m.Name)))
	}
	b.WriteString(fmt.Sprintf("✨ %.1f Max Miles per $1 · spend $%d → about %.0f Max Miles\n\n", m.BaseMPD, spend, miles))
	b.WriteString(fmt.Sprintf("🔗 <a href=\"%s\">Shop %s</a>\n", link.URL, escape(m.Name)))
	if botName != "" {
		b.WriteString(fmt.Sprintf("Keep the chain going — share via @%s", escape(botName)))
	} else {
		b.WriteString("Keep the chain going — tap the button below")
	}
	return strings.TrimSpace(b.String())
}

// linkKeyboard builds the two-row action control: row 1 opens the synthesized
// URL, row 2 carries the action token for the viral flow.
func linkKeyboard(m model.Merchant, link service.SynthesizedLink, requesterID int64) tgbotapi.InlineKeyboardMarkup {
	token := ActionToken{Kind: ActionGenerate, MerchantSlug: m.Slug, OriginalID: requesterID}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(btnShopNow, link.URL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnGetOwnLink, token.String()),
		),
	)
}

func composeInlineResult(id string, c service.Candidate, link service.SynthesizedLink, requesterID int64) tgbotapi.InlineQueryResultArticle {
	article := tgbotapi.NewInlineQueryResultArticleHTML(id, resultTitle(c.Merchant), composeLinkMessage(c.Merchant, link))
	article.Description = resultDescription(c)
	if c.Merchant.LogoURL != "" {
		article.ThumbURL = c.Merchant.LogoURL
	}
	keyboard := linkKeyboard(c.Merchant, link, requesterID)
	article.ReplyMarkup = &keyboard
	return article
}

// composeNoMatchResult is the sentinel item shown instead of an empty answer.
func composeNoMatchResult(id string, suggestions []string) tgbotapi.InlineQueryResultArticle {
	text := fmt.Sprintf(
		"😕 No merchants matched your search.\nTry one of these: <b>%s</b>",
		escape(strings.Join(suggestions, ", ")),
	)
	article := tgbotapi.NewInlineQueryResultArticleHTML(id, "😕 No matching merchants", text)
	article.Description = "Try: " + strings.Join(suggestions, ", ")
	return article
}

func composeHelpMessage(botName string) string {
	var b strings.Builder
	b.WriteString("👋 <b>HeyMax Shop Bot</b>\n")
	b.WriteString("Search a merchant, get your personal Max Miles link, share it with friends.\n\n")
	if botName != "" {
		b.WriteString(fmt.Sprintf("• Type <code>@%s pelago</code> in any chat to search inline\n", escape(botName)))
	} else {
		b.WriteString("• Mention me in any chat followed by a merchant name to search inline\n")
	}
	b.WriteString("• Or just send me a merchant name here\n")
	b.WriteString("• Tap «" + btnGetOwnLink + "» on a shared link to get your own")
	return b.String()
}

func escape(s string) string {
	return html.EscapeString(s)
}
