package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"metalbot/internal/catalog"
	"metalbot/internal/service"
	"metalbot/internal/storage"
)

type handlerFunc func(ctx context.Context, chatID int64, args []string)

const refreshArg = "refresh"

func (b *Bot) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"start":       b.cmdStart,
		"help":        b.cmdHelp,
		"gold":        b.priceCommand("gold"),
		"silver":      b.priceCommand("silver"),
		"cities":      b.cmdCities,
		"subscribe":   b.cmdSubscribe,
		"unsubscribe": b.cmdUnsubscribe,
		"alert":       b.cmdAlert,
		"myalert":     b.cmdMyAlert,
		"cancelalert": b.cmdCancelAlert,
		"status":      b.cmdStatus,
	}
}

const startText = "👋 <b>Welcome to the Metal Price Bot!</b>\n\n" +
	"I fetch live gold &amp; silver prices across major Indian cities.\n\n" +
	"Use /help to see all available commands."

const helpText = "📖 <b>Available Commands</b>\n\n" +
	"<b>Prices</b>\n" +
	"/gold [city]     — Gold prices (default: Bangalore)\n" +
	"/silver [city]   — Silver prices (default: Bangalore)\n" +
	"/cities          — List all supported cities\n\n" +
	"<b>Daily Subscription</b>\n" +
	"/subscribe [metal] [city]  — Get prices every day at 9 AM IST\n" +
	"/unsubscribe               — Cancel your daily subscription\n\n" +
	"<b>Price Alerts</b>\n" +
	"/alert &lt;price&gt; [metal] [city]\n" +
	"  — Notify when price drops below threshold\n" +
	"  — Example: /alert 6500 gold bangalore\n" +
	"/myalert      — Show your current alert\n" +
	"/cancelalert  — Remove your alert\n\n" +
	"<b>Other</b>\n" +
	"/status  — Cache age &amp; uptime info\n" +
	"/help    — This message"

func (b *Bot) cmdStart(ctx context.Context, chatID int64, _ []string) {
	b.reply(ctx, chatID, startText)
}

func (b *Bot) cmdHelp(ctx context.Context, chatID int64, _ []string) {
	b.reply(ctx, chatID, helpText)
}

// priceArgs reads "[city] [refresh]"; a lone "refresh" keeps the default city.
func priceArgs(args []string, defaultCity string) (city string, force bool) {
	city = defaultCity
	if len(args) > 0 && !strings.EqualFold(args[0], refreshArg) {
		city = strings.ToLower(args[0])
	}
	for _, a := range args {
		if strings.EqualFold(a, refreshArg) {
			force = true
		}
	}
	return city, force
}

func (b *Bot) priceCommand(metal string) handlerFunc {
	return func(ctx context.Context, chatID int64, args []string) {
		city, force := priceArgs(args, b.opts.DefaultCity)
		b.fetchAndReply(ctx, chatID, metal, city, force)
	}
}

// fetchAndReply shows a placeholder, then edits it with the prices.
func (b *Bot) fetchAndReply(ctx context.Context, chatID int64, metal, city string, force bool) {
	placeholder, err := b.client.SendMessage(ctx, chatID, "⏳ Fetching prices, please wait…")
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send placeholder")
	}

	text, err := b.prices.GetPrices(ctx, metal, city, force)
	if err != nil {
		var ve *catalog.ValidationError
		if errors.As(err, &ve) {
			text = "❌ " + html.EscapeString(ve.Error())
		} else {
			b.logger.Error().Err(err).Str("metal", metal).Str("city", city).Msg("unexpected error fetching prices")
			text = "⚠️ An unexpected error occurred. Please try again."
		}
	}

	if placeholder == 0 {
		b.reply(ctx, chatID, text)
		return
	}
	if err := b.client.EditMessageText(ctx, chatID, placeholder, text); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to edit placeholder, sending new message")
		b.reply(ctx, chatID, text)
	}
}

func (b *Bot) cmdCities(ctx context.Context, chatID int64, _ []string) {
	lines := make([]string, 0, len(catalog.Cities()))
	for _, c := range catalog.Cities() {
		lines = append(lines, fmt.Sprintf("• %s  →  %s", c.Slug, c.Name))
	}
	b.reply(ctx, chatID, "🏙️ <b>Supported Cities</b>\n\n"+
		"<code>"+strings.Join(lines, "\n")+"</code>\n\n"+
		"Usage example: <code>/gold mumbai</code>")
}

// subscribeArgs reads "[metal] [city]" or "[city]"; unknown values fall back to defaults.
func subscribeArgs(args []string, defaultMetal, defaultCity string) (catalog.Metal, catalog.City) {
	lower := make([]string, len(args))
	for i, a := range args {
		lower[i] = strings.ToLower(a)
	}

	metal, _ := catalog.LookupMetal(defaultMetal)
	city, _ := catalog.LookupCity(defaultCity)
	if len(lower) > 0 {
		if m, ok := catalog.LookupMetal(lower[0]); ok {
			metal = m
		}
	}
	if len(lower) > 1 {
		if c, ok := catalog.LookupCity(lower[1]); ok {
			city = c
		}
	}
	// "/subscribe mumbai": a lone city keeps the default metal
	if len(lower) > 0 {
		if c, ok := catalog.LookupCity(lower[0]); ok {
			city = c
		}
	}
	return metal, city
}

func (b *Bot) cmdSubscribe(ctx context.Context, chatID int64, args []string) {
	metal, city := subscribeArgs(args, b.opts.DefaultMetal, b.opts.DefaultCity)
	sub := storage.Subscription{ChatID: chatID, Metal: metal.Slug, City: city.Slug}
	if err := b.store.PutSubscription(ctx, sub); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to save subscription")
		b.reply(ctx, chatID, "⚠️ An unexpected error occurred. Please try again.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ <b>Subscribed!</b>\n\n"+
		"You'll receive <b>%s</b> prices for <b>%s</b> every day at <b>9:00 AM IST</b>.\n\n"+
		"Use /unsubscribe to cancel.", metal.Label, city.Name))
}

func (b *Bot) cmdUnsubscribe(ctx context.Context, chatID int64, _ []string) {
	removed, err := b.store.DeleteSubscription(ctx, chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to delete subscription")
		b.reply(ctx, chatID, "⚠️ An unexpected error occurred. Please try again.")
		return
	}
	if removed {
		b.reply(ctx, chatID, "✅ You've been unsubscribed from daily price updates.")
		return
	}
	b.reply(ctx, chatID, "ℹ️ You don't have an active subscription.\nUse /subscribe to sign up.")
}

// parseThreshold accepts positive numbers, commas allowed ("6,500").
func parseThreshold(arg string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(strings.ReplaceAll(arg, ",", ""))
	if err != nil || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

// alertArgs reads optional metal/city identifiers in any order after the price.
func alertArgs(args []string, defaultMetal, defaultCity string) (catalog.Metal, catalog.City) {
	metal, _ := catalog.LookupMetal(defaultMetal)
	city, _ := catalog.LookupCity(defaultCity)
	for _, a := range args {
		if m, ok := catalog.LookupMetal(a); ok {
			metal = m
		} else if c, ok := catalog.LookupCity(a); ok {
			city = c
		}
	}
	return metal, city
}

func (b *Bot) cmdAlert(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, "❌ Usage: <code>/alert &lt;price&gt; [metal] [city]</code>\n"+
			"Example: <code>/alert 6500 gold bangalore</code>")
		return
	}
	threshold, ok := parseThreshold(args[0])
	if !ok {
		b.reply(ctx, chatID, "❌ Invalid price. Please enter a positive number.\n"+
			"Example: <code>/alert 6500</code>")
		return
	}

	metal, city := alertArgs(args[1:], b.opts.DefaultMetal, b.opts.DefaultCity)
	alert := storage.Alert{ChatID: chatID, Metal: metal.Slug, City: city.Slug, Threshold: threshold}
	if err := b.store.PutAlert(ctx, alert); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to save alert")
		b.reply(ctx, chatID, "⚠️ An unexpected error occurred. Please try again.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🔔 <b>Alert Set!</b>\n\n"+
		"I'll notify you when <b>%s</b> price in <b>%s</b> drops below <b>%s</b>.\n\n"+
		"Use /cancelalert to remove it.", metal.Label, city.Name, service.Rupees(threshold)))
}

func (b *Bot) cmdMyAlert(ctx context.Context, chatID int64, _ []string) {
	alert, ok, err := b.store.GetAlert(ctx, chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to load alert")
		b.reply(ctx, chatID, "⚠️ An unexpected error occurred. Please try again.")
		return
	}
	if !ok {
		b.reply(ctx, chatID, "ℹ️ You have no active alert.\n"+
			"Use <code>/alert &lt;price&gt;</code> to set one.")
		return
	}

	metalLabel := html.EscapeString(alert.Metal)
	if m, ok := catalog.LookupMetal(alert.Metal); ok {
		metalLabel = m.Label
	}
	cityLabel := html.EscapeString(alert.City)
	if c, ok := catalog.LookupCity(alert.City); ok {
		cityLabel = c.Name
	}
	b.reply(ctx, chatID, fmt.Sprintf("🔔 <b>Your Active Alert</b>\n\n"+
		"Metal: <b>%s</b>\n"+
		"City:  <b>%s</b>\n"+
		"Threshold: <b>%s</b>\n\n"+
		"Alert fires when price drops <i>below</i> this value.", metalLabel, cityLabel, service.Rupees(alert.Threshold)))
}

func (b *Bot) cmdCancelAlert(ctx context.Context, chatID int64, _ []string) {
	removed, err := b.store.DeleteAlert(ctx, chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to delete alert")
		b.reply(ctx, chatID, "⚠️ An unexpected error occurred. Please try again.")
		return
	}
	if removed {
		b.reply(ctx, chatID, "✅ Your price alert has been removed.")
		return
	}
	b.reply(ctx, chatID, "ℹ️ You have no active alert to cancel.\n"+
		"Use <code>/alert &lt;price&gt;</code> to create one.")
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64, _ []string) {
	st, err := b.status.Status(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to collect status")
		b.reply(ctx, chatID, "⚠️ An unexpected error occurred. Please try again.")
		return
	}
	b.reply(ctx, chatID, b.formatStatus(st))
}

func (b *Bot) formatStatus(st service.Status) string {
	lines := []string{
		"🤖 <b>Bot Status</b>\n",
		"⏱ Uptime: " + formatUptime(st.Uptime) + "\n",
	}
	if len(st.Cache) == 0 {
		lines = append(lines, "📦 Cache: empty")
	} else {
		lines = append(lines, "\n📦 <b>Cache Entries</b>")
		for _, item := range st.Cache {
			age := b.status.CacheAge(item)
			secs := int(age / time.Second)
			lines = append(lines, fmt.Sprintf("• %s/%s — fetched %dm %ds ago", item.Metal, item.City, secs/60, secs%60))
		}
	}
	lines = append(lines,
		fmt.Sprintf("\n👥 Subscriptions: %d", st.Subscriptions),
		fmt.Sprintf("🔔 Active alerts: %d", st.Alerts),
	)
	return strings.Join(lines, "\n")
}

func formatUptime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}
