package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"metalbot/internal/catalog"
)

// FetchedAtLayout renders the fetch timestamp, e.g. "03 Nov 2025, 09:00 AM IST".
const FetchedAtLayout = "02 Jan 2006, 03:04 PM MST"

var rupeePrinter = message.NewPrinter(language.English)

// Rupees formats an amount as ₹ with thousands separators and two decimals.
func Rupees(v decimal.Decimal) string {
	return "₹" + rupeePrinter.Sprintf("%.2f", v.Round(2).InexactFloat64())
}

func priceMessage(metal catalog.Metal, city catalog.City, renderedTable string, fetchedAt time.Time, url, sourceName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Today's %s Prices in %s</b> %s\n\n", metal.Glyph, metal.Label, city.Name, metal.Glyph)
	fmt.Fprintf(&b, "<pre><code>%s</code></pre>\n\n", html.EscapeString(renderedTable))
	fmt.Fprintf(&b, "<i>🕐 Fetched at: %s</i>\n", fetchedAt.Format(FetchedAtLayout))
	fmt.Fprintf(&b, "<i>📊 Source: <a href=\"%s\">%s</a></i>", html.EscapeString(url), html.EscapeString(sourceName))
	return b.String()
}

func manualLink(metal catalog.Metal, city catalog.City, url string) string {
	return fmt.Sprintf("🔗 Check manually: <a href='%s'>%s %s Prices</a>", html.EscapeString(url), city.Name, metal.Label)
}

func networkFallback(metal catalog.Metal, city catalog.City, url string) string {
	return fmt.Sprintf("⚠️ <b>Network error fetching %s prices.</b>\n\n%s\n<i>Please try again in a few minutes.</i>",
		metal.Label, manualLink(metal, city, url))
}

func statusFallback(metal catalog.Metal, city catalog.City, url string, status int) string {
	return fmt.Sprintf("⚠️ <b>Source website returned HTTP %d.</b>\n\n%s\n<i>Please try again in a few minutes.</i>",
		status, manualLink(metal, city, url))
}

func structureFallback(metal catalog.Metal, city catalog.City, url, reason string) string {
	return fmt.Sprintf("⚠️ <b>Could not parse %s prices.</b>\n<i>%s</i>\n\n%s",
		metal.Label, html.EscapeString(reason), manualLink(metal, city, url))
}

func unexpectedFallback(metal catalog.Metal, city catalog.City, url string) string {
	return fmt.Sprintf("⚠️ <b>Unexpected error processing %s prices.</b>\n\n%s",
		metal.Label, manualLink(metal, city, url))
}

// DailyHeader prefixes a subscription push.
func DailyHeader(metal catalog.Metal) string {
	return fmt.Sprintf("🌅 <b>Good morning! Your daily %s update:</b>\n\n", metal.Label)
}

// AlertMessage is sent when a price drops below a chat's threshold.
func AlertMessage(metal catalog.Metal, city catalog.City, price, threshold decimal.Decimal) string {
	return fmt.Sprintf("🔔 <b>Price Alert Triggered!</b>\n\n"+
		"%s <b>%s</b> in <b>%s</b> is now <b>%s</b>, which is below your threshold of <b>%s</b>.\n\n"+
		"Use /cancelalert if you no longer need this alert.",
		metal.Glyph, metal.Label, city.Name, Rupees(price), Rupees(threshold))
}
