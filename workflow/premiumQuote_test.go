package workflow

import (
	"context"
	"testing"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

func TestQuotePremium_LineDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	line := seedLine(t, e, "5000")

	quote, err := e.QuotePremium(context.Background(), QuotePremiumInput{
		LineOfBusinessId:   line.ID,
		SumInsured:         dec("2000000"),
		AgentCommissionPct: dec("5"),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote.Premium.FinalPremium.Equal(dec("10000")) || quote.Premium.IsUsingMinimum {
		t.Fatalf("expected 10000 from the rate, got %+v", quote.Premium)
	}
	if quote.Display["brokerage"] != "2000.00" || quote.Display["vat"] != "150.00" || quote.Display["net_due"] != "7850.00" {
		t.Fatalf("unexpected display %v", quote.Display)
	}
}

func TestQuotePremium_SubLineOverride(t *testing.T) {
	e, _ := newTestEngine(t)
	line := seedLine(t, e, "5000")
	brokerage := dec("12.5")
	minPremium := dec("25000")
	sub := &models.SubLineOfBusiness{LineOfBusinessId: line.ID, Name: "Industrial", BrokeragePct: &brokerage, MinPremium: &minPremium}
	if err := e.DB.Create(sub).Error; err != nil {
		t.Fatalf("seed sub-line: %v", err)
	}

	quote, err := e.QuotePremium(context.Background(), QuotePremiumInput{
		LineOfBusinessId:    line.ID,
		SubLineOfBusinessId: &sub.ID,
		SumInsured:          dec("2000000"),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote.Rating.BrokeragePct.Equal(brokerage) || !quote.Rating.VatPct.Equal(dec("7.5")) {
		t.Fatalf("expected sub-line brokerage with line VAT, got %+v", quote.Rating)
	}
	if !quote.Premium.FinalPremium.Equal(minPremium) || !quote.Premium.IsUsingMinimum {
		t.Fatalf("expected the sub-line minimum to apply, got %+v", quote.Premium)
	}

	other := 999
	_, err = e.QuotePremium(context.Background(), QuotePremiumInput{LineOfBusinessId: line.ID, SubLineOfBusinessId: &other, SumInsured: dec("1")})
	expectCode(t, err, utils.ErrNotFound)
}

func TestQuotePremium_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	line := seedLine(t, e, "0")

	over := dec("120")
	_, err := e.QuotePremium(ctx, QuotePremiumInput{LineOfBusinessId: line.ID, SumInsured: dec("1000"), BrokeragePct: &over})
	expectCode(t, err, utils.ErrValidation)

	_, err = e.QuotePremium(ctx, QuotePremiumInput{LineOfBusinessId: line.ID, SumInsured: dec("-1")})
	expectCode(t, err, utils.ErrValidation)

	if err := e.DB.Model(&models.LineOfBusiness{}).Where("id = ?", line.ID).Update("default_vat_pct", dec("101")).Error; err != nil {
		t.Fatalf("corrupt line: %v", err)
	}
	_, err = e.QuotePremium(ctx, QuotePremiumInput{LineOfBusinessId: line.ID, SumInsured: dec("1000")})
	expectCode(t, err, utils.ErrValidation)

	_, err = e.QuotePremium(ctx, QuotePremiumInput{LineOfBusinessId: 404, SumInsured: dec("1000")})
	expectCode(t, err, utils.ErrNotFound)
}
