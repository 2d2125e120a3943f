package view

import (
	"strconv"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

const (
	pageTitle    = "Reviews Given"
	pageSubtitle = "View and manage all your product reviews"
	loadingText  = "Loading reviews..."
	emptyText    = "No reviews match your criteria."
)

// LoadingPage is shown until the first fetch settles. It loads refreshURL
// every opts.RefreshSeconds.
func LoadingPage(opts Options, refreshURL string) g.Node {
	refresh := strconv.Itoa(max(opts.RefreshSeconds, 1))
	if refreshURL != "" {
		refresh += "; url=" + refreshURL
	}
	return document(
		h.Meta(g.Attr("http-equiv", "refresh"), g.Attr("content", refresh)),
		h.Div(h.Class("reviews-loading"), g.Attr("role", "status"),
			h.P(g.Text(loadingText)),
		),
	)
}

// ReviewsPage renders the loaded page.
func ReviewsPage(m PageModel) g.Node {
	return document(nil,
		h.Main(h.Class("reviews-page"),
			h.A(h.Class("back-link"), h.Href(m.DashboardURL), g.Text("Back to Dashboard")),
			g.El("header", h.Class("reviews-header"),
				h.H1(g.Text(pageTitle)),
				h.P(h.Class("subtitle"), g.Text(pageSubtitle)),
			),
			searchForm(m),
			filterBar(m.Filters),
			reviewList(m.Reviews),
		),
	)
}

func document(head g.Node, body ...g.Node) g.Node {
	return h.Doctype(
		h.HTML(h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), g.Attr("content", "width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(pageTitle)),
				head,
			),
			h.Body(body...),
		),
	)
}

func searchForm(m PageModel) g.Node {
	return g.El("form", h.Class("reviews-search"), g.Attr("method", "get"), g.Attr("action", m.BasePath),
		g.Attr("role", "search"),
		h.Input(h.Type("search"), h.Name("q"), h.Value(m.Query), h.Placeholder("Search reviews..."),
			g.Attr("aria-label", "Search reviews")),
		h.Input(h.Type("hidden"), h.Name("filter"), h.Value(string(m.Filter))),
		g.If(m.View != "", h.Input(h.Type("hidden"), h.Name("view"), h.Value(m.View))),
		h.Button(h.Type("submit"), g.Text("Search")),
	)
}

func filterBar(filters []FilterToggle) g.Node {
	return g.El("nav", h.Class("reviews-filters"), g.Attr("aria-label", "Filter by rating"),
		g.Map(filters, func(f FilterToggle) g.Node {
			class := "filter-toggle"
			if f.Active {
				class += " active"
			}
			return h.A(h.Class(class), h.Href(f.Href),
				g.If(f.Active, g.Attr("aria-current", "true")),
				g.Text(f.Label),
			)
		}),
	)
}

func reviewList(cards []ReviewCard) g.Node {
	if len(cards) == 0 {
		return h.Div(h.Class("reviews-list"),
			h.Div(h.Class("review-card empty"), h.P(g.Text(emptyText))),
		)
	}
	return h.Div(h.Class("reviews-list"),
		g.Map(cards, func(c ReviewCard) g.Node {
			return g.El("article", h.Class("review-card"), h.ID("review-"+c.ID),
				h.H3(h.Class("product-name"), g.Text(c.ProductName)),
				g.El("span", h.Class("stars"), g.Attr("aria-label", strconv.Itoa(c.Rating)+" stars"), g.Text(c.Stars)),
				h.P(h.Class("comment"), g.Text(c.Comment)),
				g.El("span", h.Class("date"), g.Text(c.Date)),
			)
		}),
	)
}
