package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderBook es un snapshot del libro de órdenes de un exchange.
// Es transitorio: vive lo que dura la extracción del top-of-book.
type OrderBook struct {
	Exchange  ExchangeID
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	FetchedAt time.Time
}

// PriceLevel es un nivel de precio del libro. Solo Price se usa en la detección.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// TopOfBook es el mejor bid y el mejor ask de un snapshot.
// Un lado con Valid=false significa que el libro no tenía niveles en ese lado.
type TopOfBook struct {
	Bid decimal.NullDecimal
	Ask decimal.NullDecimal
}

// Complete devuelve true si ambos lados están presentes.
func (t TopOfBook) Complete() bool {
	return t.Bid.Valid && t.Ask.Valid
}

// EmptyBookError indica que la extracción no encontró niveles en algún lado.
// No es fatal: el lado vacío conserva su último valor conocido.
type EmptyBookError struct {
	Exchange ExchangeID
	NoBids   bool
	NoAsks   bool
}

func (e *EmptyBookError) Error() string {
	var sides []string
	if e.NoBids {
		sides = append(sides, "bids")
	}
	if e.NoAsks {
		sides = append(sides, "asks")
	}
	return fmt.Sprintf("empty book on %s: no %s", e.Exchange, strings.Join(sides, ", "))
}

// Extract reduce el snapshot a (mejor bid, mejor ask).
//
// No se confía en el orden del exchange: el mejor bid es el precio máximo y el
// mejor ask el mínimo. Si algún lado está vacío se devuelve igualmente el otro
// lado junto con un *EmptyBookError.
func Extract(book OrderBook) (TopOfBook, error) {
	var tob TopOfBook

	for _, lvl := range book.Bids {
		if !tob.Bid.Valid || lvl.Price.GreaterThan(tob.Bid.Decimal) {
			tob.Bid = decimal.NewNullDecimal(lvl.Price)
		}
	}
	for _, lvl := range book.Asks {
		if !tob.Ask.Valid || lvl.Price.LessThan(tob.Ask.Decimal) {
			tob.Ask = decimal.NewNullDecimal(lvl.Price)
		}
	}

	if !tob.Complete() {
		return tob, &EmptyBookError{
			Exchange: book.Exchange,
			NoBids:   !tob.Bid.Valid,
			NoAsks:   !tob.Ask.Valid,
		}
	}
	return tob, nil
}

// Spread devuelve ask - bid del propio venue, o false si falta algún lado.
func (t TopOfBook) Spread() (decimal.Decimal, bool) {
	if !t.Complete() {
		return decimal.Zero, false
	}
	return t.Ask.Decimal.Sub(t.Bid.Decimal), true
}

// ParseLevel convierte un par de strings (precio, tamaño) de la API a PriceLevel.
// Usado en el mapping de los adapters.
func ParseLevel(price, size string) (PriceLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("domain.ParseLevel: price %q: %w", price, err)
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("domain.ParseLevel: size %q: %w", size, err)
	}
	return PriceLevel{Price: p, Size: s}, nil
}
