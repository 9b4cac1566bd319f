package catalog

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
)

// Action paths the rendered cards post to.
const (
	AddToCartAction = "/cart/add"
	RegisterAction  = "/classes/register"
)

// mdRenderer escapes raw HTML in descriptions (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a price as US currency, e.g. "$12.99" or "$1,250.00".
func FormatPrice(d decimal.Decimal) string {
	return pricePrinter.Sprintf("$%.2f", d.Round(2).InexactFloat64())
}

// RenderMarkdown converts a description to HTML. On failure the escaped
// source is returned.
func RenderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// ProductCard is the display projection of a product.
type ProductCard struct {
	ID          int
	Name        string
	Price       string
	Badge       string
	Description template.HTML
	DetailURL   string
	AddAction   string
}

// ClassDate is one selectable date of a class.
type ClassDate struct {
	Value string
	Label string
}

// ClassCard is the display projection of a class offering.
type ClassCard struct {
	ID             int
	Name           string
	Cost           string
	Free           bool
	Dates          []ClassDate
	DateChoice     bool
	Description    template.HTML
	Link           string
	RegisterAction string
}

// ProductDetail is the product page view with its quantity selector.
type ProductDetail struct {
	ProductCard
	Category    string
	MinQuantity int
	MaxQuantity int
}

// NewProductCard projects a single product.
func NewProductCard(p product.Product) ProductCard {
	return ProductCard{
		ID:          p.ID,
		Name:        p.Name,
		Price:       FormatPrice(p.Price),
		Badge:       p.Badge,
		Description: RenderMarkdown(p.Description),
		DetailURL:   DetailURL(p.ID),
		AddAction:   AddToCartAction,
	}
}

// RenderProducts projects products into cards. limit <= 0 renders all.
func RenderProducts(products []product.Product, limit int) []ProductCard {
	products = head(products, limit)
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, NewProductCard(p))
	}
	return cards
}

// NewClassCard projects a single class offering.
func NewClassCard(o class.Offering) ClassCard {
	card := ClassCard{
		ID:             o.ID,
		Name:           o.Name,
		Cost:           FormatPrice(o.Cost),
		Free:           o.IsFree(),
		DateChoice:     o.HasDateChoice(),
		Description:    RenderMarkdown(o.Description),
		Link:           o.Link,
		RegisterAction: RegisterAction,
	}
	if card.Free {
		card.Cost = "Free"
	}
	for _, d := range o.Dates {
		card.Dates = append(card.Dates, ClassDate{
			Value: d,
			Label: sessionLabel(d, o.Sessions),
		})
	}
	return card
}

// RenderClasses projects classes into cards. limit <= 0 renders all.
func RenderClasses(classes []class.Offering, limit int) []ClassCard {
	classes = head(classes, limit)
	cards := make([]ClassCard, 0, len(classes))
	for _, o := range classes {
		cards = append(cards, NewClassCard(o))
	}
	return cards
}

// NewProductDetail builds the detail view; the quantity selector is bounded
// by 1..maxQuantity.
func NewProductDetail(p product.Product, maxQuantity int) ProductDetail {
	return ProductDetail{
		ProductCard: NewProductCard(p),
		Category:    p.Category,
		MinQuantity: 1,
		MaxQuantity: max(maxQuantity, 1),
	}
}

// DetailURL is the product page link for id.
func DetailURL(id int) string {
	return "/product?id=" + strconv.Itoa(id)
}

// AddedMessage is the toast shown after adding qty of a product.
func AddedMessage(name string, qty int) string {
	if qty == 1 {
		return name + " added to cart!"
	}
	return fmt.Sprintf("%d × %s added to cart!", qty, name)
}

// LimitMessage is the toast shown when a product line is already at max.
func LimitMessage(name string, limit int) string {
	return fmt.Sprintf("You already have the maximum of %d × %s in your cart", limit, name)
}

// RegisteredMessage is the toast shown after a class register action.
func RegisteredMessage(name string) string {
	return `Registration for "` + name + `" submitted! We'll contact you shortly.`
}

func sessionLabel(date string, sessions int) string {
	if sessions == 1 {
		return date + " - 1 session"
	}
	return fmt.Sprintf("%s - %d sessions", date, sessions)
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && limit < len(s) {
		return s[:limit]
	}
	return s
}
