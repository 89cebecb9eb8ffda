package parser

import (
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
)

// Registry is an ordered collection of vendor parsers. Registration order
// encodes priority: the first parser whose predicate and extraction both
// succeed wins, and no further parsers are tried.
type Registry struct {
	parsers []VendorParser
}

func NewRegistry(parsers ...VendorParser) *Registry {
	return &Registry{parsers: parsers}
}

// Register appends a parser. Later registrations lose ties.
func (r *Registry) Register(p VendorParser) {
	r.parsers = append(r.parsers, p)
}

// Parse runs the email through the registered parsers in order. ok=false
// means no parser matched; that is a common, expected outcome, not an error.
func (r *Registry) Parse(email model.RawEmail) (model.CandidateOrder, string, bool) {
	for _, p := range r.parsers {
		if !p.CanParse(email) {
			continue
		}
		if cand, ok := p.Parse(email); ok {
			return cand, p.Name(), true
		}
	}
	return model.CandidateOrder{}, "", false
}

// SenderDomains returns every registered parser's sender domains, for the
// mail search query.
func (r *Registry) SenderDomains() []string {
	var domains []string
	for _, p := range r.parsers {
		if t, ok := p.(*vendorTemplate); ok {
			domains = append(domains, t.senderDomains...)
		}
	}
	return domains
}

// SubjectTerms returns every registered parser's subject keywords, for the
// mail search query.
func (r *Registry) SubjectTerms() []string {
	var terms []string
	for _, p := range r.parsers {
		if t, ok := p.(*vendorTemplate); ok {
			terms = append(terms, t.subjectTerms...)
		}
	}
	return terms
}

// NewDefaultRegistry registers the known vendors in priority order.
// Dedicated suppliers come before marketplaces so cross-listed sellers
// resolve to the more specific parser.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		NewDexcomParser(),
		NewByramParser(),
		NewCVSParser(),
		NewWalgreensParser(),
		NewAmazonParser(),
	)
}
