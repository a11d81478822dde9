package beer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Style string

const (
	Lager   Style = "LAGER"
	Pilsner Style = "PILSNER"
	Stout   Style = "STOUT"
	Gose    Style = "GOSE"
	Porter  Style = "PORTER"
	Ale     Style = "ALE"
	Wheat   Style = "WHEAT"
	IPA     Style = "IPA"
	PaleAle Style = "PALE_ALE"
	Saison  Style = "SAISON"
)

var Styles = []Style{Lager, Pilsner, Stout, Gose, Porter, Ale, Wheat, IPA, PaleAle, Saison}

func ParseStyle(s string) (Style, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, st := range Styles {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStyle, s)
}

func (s *Style) UnmarshalText(b []byte) error {
	st, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type Beer struct {
	ID             uuid.UUID       `json:"id"`
	Version        int             `json:"version"`
	Name           string          `json:"beerName"`
	Style          Style           `json:"beerStyle"`
	UPC            string          `json:"upc"`
	QuantityOnHand int             `json:"quantityOnHand"`
	Price          decimal.Decimal `json:"price"`
	CreatedDate    time.Time       `json:"createdDate"`
	UpdateDate     time.Time       `json:"updateDate"`
}

// Patch carries the fields of a partial update. Nil fields are left as is.
type Patch struct {
	Name           *string          `json:"beerName"`
	Style          *Style           `json:"beerStyle"`
	UPC            *string          `json:"upc"`
	QuantityOnHand *int             `json:"quantityOnHand"`
	Price          *decimal.Decimal `json:"price"`
}

func (p Patch) apply(b *Beer) {
	if hasText(p.Name) {
		b.Name = *p.Name
	}
	if p.Style != nil && *p.Style != "" {
		b.Style = *p.Style
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.QuantityOnHand != nil {
		b.QuantityOnHand = *p.QuantityOnHand
	}
	if hasText(p.UPC) {
		b.UPC = *p.UPC
	}
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
