// Package backtest implements the per-ticker backtest engine: it simulates
// Buy & Hold and a family of dividend-capture variants over a daily price
// series and a dividend ex-date series, and compares the results.
package backtest

import (
	"fmt"
	"sort"
	"strings"

	"divcap/internal/domain"
)

// Variant describes one strategy to simulate. Dividend-capture variants are
// parameterised by entry/exit offsets measured in trading days relative to
// the (snapped) ex-dividend date: "DD to DD+4" buys on the ex-date and sells
// four trading days later.
type Variant struct {
	Name        string
	Kind        domain.StrategyKind
	EntryOffset int // trading days after the ex-date to buy (may be 0)
	ExitOffset  int // trading days after the ex-date to sell
}

// BuyHold returns the Buy & Hold variant.
func BuyHold() Variant {
	return Variant{Name: "Buy & Hold", Kind: domain.StrategyBuyHold}
}

// DivCapture returns a dividend-capture variant with the given name and
// entry/exit offsets.
func DivCapture(name string, entryOffset, exitOffset int) Variant {
	return Variant{
		Name:        name,
		Kind:        domain.StrategyDivCapture,
		EntryOffset: entryOffset,
		ExitOffset:  exitOffset,
	}
}

// DefaultVariants returns the standard strategy set run for every ticker.
func DefaultVariants() []Variant {
	return []Variant{
		BuyHold(),
		DivCapture("DD to DD+4", 0, 4),
		DivCapture("DD+2 to DD+4", 2, 4),
	}
}

// Registry holds a named collection of variants for lookup and enumeration.
// Configured variant names resolve against it.
type Registry struct {
	variants map[string]Variant
}

// DefaultRegistry returns a Registry holding the standard variant set.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultVariants()...)
}

// NewRegistry creates a Registry pre-populated with the given variants.
func NewRegistry(variants ...Variant) *Registry {
	r := &Registry{variants: make(map[string]Variant, len(variants))}
	for _, v := range variants {
		r.Register(v)
	}
	return r
}

// Register adds a variant to the registry, keyed by its Name.
func (r *Registry) Register(v Variant) {
	r.variants[v.Name] = v
}

// Get retrieves a variant by name. The second return value indicates whether
// the variant was found.
func (r *Registry) Get(name string) (Variant, bool) {
	v, ok := r.variants[name]
	return v, ok
}

// Resolve maps configured variant names to their Variants, preserving order.
// An unknown name is an error listing the registered alternatives.
func (r *Registry) Resolve(names []string) ([]Variant, error) {
	variants := make([]Variant, 0, len(names))
	for _, name := range names {
		v, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown strategy variant %q (registered: %s)",
				name, strings.Join(r.List(), ", "))
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// List returns a sorted slice of all registered variant names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
