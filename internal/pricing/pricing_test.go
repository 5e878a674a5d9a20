package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/journalpay/internal/catalog/domain"
	"github.com/smallbiznis/journalpay/internal/config"
	"github.com/stretchr/testify/assert"
)

func newCalculator() *Calculator {
	return NewCalculator(config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()))
}

func qty(n int) *int { return &n }

func TestPrintedPublicationPrice(t *testing.T) {
	calc := newCalculator()

	cases := []struct {
		name string
		form PrintedPublicationForm
		want int64
	}{
		{name: "hard cover two copies", form: PrintedPublicationForm{Pages: 100, Quantity: qty(2), CoverType: CoverHard}, want: 130000},
		{name: "soft cover with isbn", form: PrintedPublicationForm{Pages: 10, Quantity: qty(1), CoverType: CoverSoft, IncludeISBN: true}, want: 614000},
		{name: "minimum applies", form: PrintedPublicationForm{Pages: 1, Quantity: qty(1), CoverType: "none"}, want: 4000},
		{name: "missing cover defaults to soft", form: PrintedPublicationForm{Pages: 1, Quantity: qty(1)}, want: 10400},
		{name: "missing quantity prints one copy", form: PrintedPublicationForm{Pages: 100, CoverType: CoverHard}, want: 65000},
		{name: "zero quantity falls to minimum", form: PrintedPublicationForm{Pages: 100, Quantity: qty(0), CoverType: CoverHard}, want: 4000},
		{name: "negative quantity falls to minimum", form: PrintedPublicationForm{Pages: 100, Quantity: qty(-3), CoverType: CoverHard}, want: 4000},
		{name: "negative pages count as none", form: PrintedPublicationForm{Pages: -5, Quantity: qty(1), CoverType: CoverSoft}, want: 10000},
		{name: "unknown cover costs nothing", form: PrintedPublicationForm{Pages: 50, Quantity: qty(1), CoverType: "leather"}, want: 20000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.PrintedPublicationPrice(tc.form)
			assert.True(t, decimal.NewFromInt(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestArticlePrice(t *testing.T) {
	calc := newCalculator()
	journal := catalogdomain.Journal{
		PartnerPrice: decimal.NewFromInt(30000),
		RegularPrice: decimal.NewFromInt(90000),
	}

	assert.True(t, decimal.NewFromInt(30000).Equal(calc.ArticlePrice(journal, "Aziz HAMKOR Karimov")))
	assert.True(t, decimal.NewFromInt(90000).Equal(calc.ArticlePrice(journal, "Aziz Karimov")))

	free := catalogdomain.Journal{PartnerPrice: decimal.Zero, RegularPrice: decimal.Zero}
	assert.True(t, calc.ArticlePrice(free, "hamkor").IsZero())
	assert.True(t, calc.ArticlePrice(free, "").IsZero())
}

func TestServicePrice(t *testing.T) {
	calc := newCalculator()
	udc := catalogdomain.Service{Slug: "udc-classification", Price: decimal.NewFromInt(50000)}
	printed := catalogdomain.Service{Slug: "printed-publications", Price: decimal.NewFromInt(1)}

	assert.True(t, decimal.NewFromInt(50000).Equal(calc.ServicePrice(udc, &PrintedPublicationForm{Pages: 100})))
	assert.True(t, decimal.NewFromInt(130000).Equal(calc.ServicePrice(printed, &PrintedPublicationForm{Pages: 100, Quantity: qty(2), CoverType: CoverHard})))
	assert.True(t, decimal.NewFromInt(1).Equal(calc.ServicePrice(printed, nil)))
	assert.True(t, calc.IsUDCClassification(udc))
	assert.False(t, calc.IsPrintedPublication(udc))
}
