package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
)

// vendorTemplate is the shared extraction template every vendor parser is a
// tuning of: sender domains and subject patterns for the predicate, a
// supplier name and a typical pack size for the extraction defaults.
type vendorTemplate struct {
	name            string
	supplier        string
	senderDomains   []string
	subjectPatterns []*regexp.Regexp
	// subjectTerms feed the mail search query; they mirror subjectPatterns
	// in plain-keyword form.
	subjectTerms []string
	// packSize is the vendor's typical box size, used when the email states
	// no quantity. Under-counting inventory is worse than a sane default.
	packSize int
}

func (v *vendorTemplate) Name() string {
	return v.name
}

// CanParse matches on sender domain or subject pattern. Cheap and
// conservative; Parse still decides whether the email is a real order.
func (v *vendorTemplate) CanParse(email model.RawEmail) bool {
	from := strings.ToLower(email.From)
	for _, domain := range v.senderDomains {
		if strings.Contains(from, domain) {
			return true
		}
	}
	for _, re := range v.subjectPatterns {
		if re.MatchString(email.Subject) {
			return true
		}
	}
	return false
}

// Parse extracts a candidate order. Fails when the email carries no
// diabetes-supply indicator or no recognizable status, even if the
// predicate matched: vendors send plenty of unrelated correspondence.
func (v *vendorTemplate) Parse(email model.RawEmail) (model.CandidateOrder, bool) {
	if !hasSupplyIndicator(email.Subject, email.Body) {
		return model.CandidateOrder{}, false
	}

	status, ok := detectStatus(email.Subject, email.Body)
	if !ok {
		return model.CandidateOrder{}, false
	}

	cand := model.CandidateOrder{
		OrderDate:      email.ReceivedAt,
		Supplier:       v.supplier,
		Status:         status,
		Quantity:       extractQuantity(email.Subject, email.Body).Or(v.packSize),
		TrackingNumber: extractTrackingNumber(email.Subject, email.Body),
		Items:          extractItems(email.Subject, email.Body),
	}

	cand.OrderNumber = extractOrderNumber(email.Subject, email.Body)
	if !cand.OrderNumber.Present {
		// Shipping-notice formats without an order id still need a matchable
		// handle. The synthesized key is flagged so it is never mistaken for
		// a vendor-assigned number.
		key := fmt.Sprintf("%s-%d", strings.ReplaceAll(strings.ToLower(v.supplier), " ", ""), email.ReceivedAt.Unix())
		cand.OrderNumber = model.Some(key)
		cand.Synthesized = true
	}

	cand.Confidence = scoreConfidence(cand)
	return cand, true
}
