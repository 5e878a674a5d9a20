package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	"github.com/smallbiznis/journalpay/internal/config"
)

type CoverType string

const (
	CoverHard CoverType = "hard"
	CoverSoft CoverType = "soft"
)

// PrintedPublicationForm is the order form for the printed publications service.
type PrintedPublicationForm struct {
	BookTitle   string    `json:"bookTitle" validate:"required,max=500"`
	Authors     string    `json:"authors" validate:"omitempty,max=500"`
	Pages       int       `json:"bookPages" validate:"gte=0,lte=5000"`
	Quantity    *int      `json:"quantity" validate:"omitempty,gte=0,lte=10000"`
	CoverType   CoverType `json:"coverType" validate:"omitempty,oneof=hard soft"`
	IncludeISBN bool      `json:"includeISBN"`
	Phone       string    `json:"phone" validate:"omitempty,max=32"`
	Address     string    `json:"address" validate:"omitempty,max=500"`
}

type Calculator struct {
	rates *config.PricingConfigHolder
}

func NewCalculator(rates *config.PricingConfigHolder) *Calculator {
	return &Calculator{rates: rates}
}

// ArticlePrice picks the journal's partner price when the submitter's full
// name carries the partner marker. Stored prices are used as they are.
func (c *Calculator) ArticlePrice(journal catalogdomain.Journal, submitterFullName string) decimal.Decimal {
	marker := strings.ToLower(strings.TrimSpace(c.rates.Get().Article.PartnerMarker))
	if marker != "" && strings.Contains(strings.ToLower(submitterFullName), marker) {
		return journal.PartnerPrice
	}
	return journal.RegularPrice
}

func (c *Calculator) IsPrintedPublication(svc catalogdomain.Service) bool {
	return svc.Slug == c.rates.Get().PrintedPublication.ServiceSlug
}

func (c *Calculator) IsUDCClassification(svc catalogdomain.Service) bool {
	return svc.Slug == c.rates.Get().PrintedPublication.UDCServiceSlug
}

// ServicePrice returns the flat service price, or the computed price for printed publications.
func (c *Calculator) ServicePrice(svc catalogdomain.Service, form *PrintedPublicationForm) decimal.Decimal {
	if c.IsPrintedPublication(svc) && form != nil {
		return c.PrintedPublicationPrice(*form)
	}
	return svc.Price
}

func (c *Calculator) PrintedPublicationPrice(form PrintedPublicationForm) decimal.Decimal {
	rates := c.rates.Get().PrintedPublication

	pages := int64(form.Pages)
	if pages < 0 {
		pages = 0
	}
	// Only a missing quantity means one copy; zero or less falls to the floor.
	quantity := int64(1)
	if form.Quantity != nil {
		quantity = int64(*form.Quantity)
	}

	// An order without a cover choice is printed in soft cover.
	coverType := CoverType(strings.ToLower(strings.TrimSpace(string(form.CoverType))))
	if coverType == "" {
		coverType = CoverSoft
	}
	var cover int64
	switch coverType {
	case CoverHard:
		cover = rates.HardCover
	case CoverSoft:
		cover = rates.SoftCover
	}

	var isbn int64
	if form.IncludeISBN {
		isbn = rates.ISBN
	}

	unit := decimal.NewFromInt(pages*rates.PerPage + cover + isbn)
	total := unit.Mul(decimal.NewFromInt(quantity))
	floor := decimal.NewFromInt(rates.MinimumTotal)
	if total.LessThan(floor) {
		return floor
	}
	return total
}
