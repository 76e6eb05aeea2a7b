package app

import (
	"context"
	"fmt"
	"io"

	"metalbot/internal/catalog"
	"metalbot/internal/table"
)

// Show fetches one pair and prints the aligned table, or the full chat message.
func (a *App) Show(ctx context.Context, out io.Writer, opts ShowOptions) error {
	c, err := a.newCore()
	if err != nil {
		return err
	}

	if opts.Message {
		msg, err := c.prices.GetPrices(ctx, opts.Metal, opts.City, true)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
		return nil
	}

	metal, city, err := catalog.Resolve(opts.Metal, opts.City)
	if err != nil {
		return err
	}
	parsed, err := c.prices.FetchTable(ctx, metal.Slug, city.Slug)
	if err != nil {
		return fmt.Errorf("fetch %s/%s: %w", metal.Slug, city.Slug, err)
	}

	fmt.Fprintf(out, "%s %s prices in %s\n\n", metal.Glyph, metal.Label, city.Name)
	fmt.Fprintln(out, table.Render(parsed.Headers, parsed.Rows))
	if parsed.HasPrice {
		fmt.Fprintf(out, "\ncurrent price: %s\n", parsed.CurrentPrice.String())
	} else {
		fmt.Fprintln(out, "\ncurrent price: unknown")
	}
	fmt.Fprintf(out, "source: %s\n", c.prices.URL(metal, city))
	return nil
}
