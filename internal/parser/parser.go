package parser

import (
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
)

// VendorParser interprets one supplier's email format.
//
// CanParse is a cheap, conservative predicate (sender domain or subject
// pattern) used only to select candidates. Parse does the real extraction
// and may still fail when an email superficially resembles the vendor's
// format but carries no extractable fields.
type VendorParser interface {
	Name() string
	CanParse(email model.RawEmail) bool
	Parse(email model.RawEmail) (model.CandidateOrder, bool)
}
