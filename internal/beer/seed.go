package beer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
)

// DefaultSeed returns the demo beers the service starts with.
func DefaultSeed() []Beer {
	now := time.Now().UTC()
	return []Beer{
		newSeedBeer("Galaxy Cat", PaleAle, "12356", "12.99", 122, now),
		newSeedBeer("Crank", PaleAle, "12356222", "11.99", 392, now.Add(time.Microsecond)),
		newSeedBeer("Sunshine City", IPA, "12356", "13.99", 144, now.Add(2*time.Microsecond)),
	}
}

func newSeedBeer(name string, style Style, upc, price string, qty int, at time.Time) Beer {
	return Beer{
		ID:             uuid.New(),
		Version:        1,
		Name:           name,
		Style:          style,
		UPC:            upc,
		QuantityOnHand: qty,
		Price:          decimal.RequireFromString(price),
		CreatedDate:    at,
		UpdateDate:     at,
	}
}

type hclSeedFile struct {
	Beers []*hclSeedBeer `hcl:"beer,block"`
}

type hclSeedBeer struct {
	Name     string `hcl:"name,label"`
	Style    string `hcl:"style,optional"`
	UPC      string `hcl:"upc,optional"`
	Quantity int    `hcl:"quantity_on_hand,optional"`
	Price    string `hcl:"price,optional"`
}

// LoadSeedFile reads beers from an HCL file of the form
//
//	beer "Galaxy Cat" {
//	  style            = "PALE_ALE"
//	  upc              = "12356"
//	  quantity_on_hand = 122
//	  price            = "12.99"
//	}
func LoadSeedFile(path string) ([]Beer, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, diags)
	}

	var parsed hclSeedFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, diags)
	}

	now := time.Now().UTC()
	out := make([]Beer, 0, len(parsed.Beers))
	for i, hb := range parsed.Beers {
		style, err := ParseStyle(hb.Style)
		if err != nil {
			return nil, fmt.Errorf("seed beer %q: %w", hb.Name, err)
		}

		price := decimal.Zero
		if hb.Price != "" {
			price, err = decimal.NewFromString(hb.Price)
			if err != nil {
				return nil, fmt.Errorf("seed beer %q: bad price: %w", hb.Name, err)
			}
		}

		at := now.Add(time.Duration(i) * time.Microsecond)
		out = append(out, Beer{
			ID:             uuid.New(),
			Version:        1,
			Name:           hb.Name,
			Style:          style,
			UPC:            hb.UPC,
			QuantityOnHand: hb.Quantity,
			Price:          price,
			CreatedDate:    at,
			UpdateDate:     at,
		})
	}
	return out, nil
}

// Seed inserts beers into the store.
func Seed(ctx context.Context, s Store, beers []Beer) error {
	for _, b := range beers {
		if err := s.Put(ctx, b); err != nil {
			return fmt.Errorf("seed beer %q: %w", b.Name, err)
		}
	}
	return nil
}
