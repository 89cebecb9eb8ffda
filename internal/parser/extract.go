package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
)

// Status keyword sets. Checked in priority order: a delivery notice may
// reuse "shipped" language, so delivered wins over shipped over ordered.
var (
	deliveredKeywords = []string{"delivered", "has arrived", "was left at"}
	shippedKeywords   = []string{"shipped", "shipping", "on its way", "on the way", "out for delivery"}
	orderedKeywords   = []string{"confirmation", "order placed", "order received", "thank you for your order", "we received your order"}
)

func detectStatus(subject, body string) (model.OrderStatus, bool) {
	text := strings.ToLower(subject + " " + body)

	for _, kw := range deliveredKeywords {
		if strings.Contains(text, kw) {
			return model.OrderStatusDelivered, true
		}
	}
	for _, kw := range shippedKeywords {
		if strings.Contains(text, kw) {
			return model.OrderStatusShipped, true
		}
	}
	for _, kw := range orderedKeywords {
		if strings.Contains(text, kw) {
			return model.OrderStatusOrdered, true
		}
	}
	return "", false
}

// Order-number label patterns, tried in order against subject then body.
// First match wins.
var orderNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)order\s*#\s*:?\s*([A-Z0-9][A-Z0-9-]{3,})`),
	regexp.MustCompile(`(?i)order\s+number\s*:?\s*#?\s*([A-Z0-9][A-Z0-9-]{3,})`),
	regexp.MustCompile(`(?i)confirmation\s*#\s*:?\s*([A-Z0-9][A-Z0-9-]{3,})`),
	regexp.MustCompile(`(?i)confirmation\s+number\s*:?\s*#?\s*([A-Z0-9][A-Z0-9-]{3,})`),
}

func extractOrderNumber(subject, body string) model.Field[string] {
	for _, re := range orderNumberPatterns {
		if m := re.FindStringSubmatch(subject); m != nil {
			return model.Some(m[1])
		}
		if m := re.FindStringSubmatch(body); m != nil {
			return model.Some(m[1])
		}
	}
	return model.None[string]()
}

var trackingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)tracking\s+number\s*:?\s*([A-Z0-9]{4,})`),
	regexp.MustCompile(`(?i)tracking\s*#\s*:?\s*([A-Z0-9]{4,})`),
}

func extractTrackingNumber(subject, body string) model.Field[string] {
	for _, re := range trackingPatterns {
		if m := re.FindStringSubmatch(subject); m != nil {
			return model.Some(m[1])
		}
		if m := re.FindStringSubmatch(body); m != nil {
			return model.Some(m[1])
		}
	}
	return model.None[string]()
}

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)qty\s*:?\s*(\d{1,3})`),
	regexp.MustCompile(`(?i)quantity\s*:?\s*(\d{1,3})`),
	regexp.MustCompile(`(?i)\((\d{1,2})[\s-]*pack\)`),
	regexp.MustCompile(`(?i)(\d{1,2})[\s-]*pack`),
	regexp.MustCompile(`(?i)box\s+of\s+(\d{1,3})`),
}

func extractQuantity(subject, body string) model.Field[int] {
	text := subject + " " + body
	for _, re := range quantityPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return model.Some(n)
			}
		}
	}
	return model.None[int]()
}

// itemRule maps a text pattern to a canonical product name. First match per
// category wins; multiple categories may all match in one email.
type itemRule struct {
	category  string
	canonical string
	pattern   *regexp.Regexp
}

var itemRules = []itemRule{
	{"sensor", "Dexcom G6 Sensor", regexp.MustCompile(`(?i)dexcom\s*g6`)},
	{"sensor", "Dexcom G7 Sensor", regexp.MustCompile(`(?i)dexcom\s*g7`)},
	{"sensor", "FreeStyle Libre Sensor", regexp.MustCompile(`(?i)freestyle\s*libre|libre\s*[23]\b`)},
	{"sensor", "CGM Sensor", regexp.MustCompile(`(?i)\bcgm\b|glucose\s+monitor`)},
	{"test_strips", "Blood Glucose Test Strips", regexp.MustCompile(`(?i)test\s*strips?`)},
	{"insulin", "Insulin", regexp.MustCompile(`(?i)\b(insulin|humalog|novolog|lantus|tresiba|fiasp)\b`)},
	{"lancets", "Lancets", regexp.MustCompile(`(?i)\blancets?\b`)},
	{"pump_supply", "Pump Supplies", regexp.MustCompile(`(?i)infusion\s*sets?|pump\s*suppl|omnipod|reservoirs?|pod\s*pack`)},
}

func extractItems(subject, body string) []string {
	text := subject + " " + body
	matched := make(map[string]bool)
	var items []string

	for _, rule := range itemRules {
		if matched[rule.category] {
			continue
		}
		if rule.pattern.MatchString(text) {
			matched[rule.category] = true
			items = append(items, rule.canonical)
		}
	}
	return items
}

// Generic diabetes-supply indicators for emails where no item rule hits.
// A vendor email with neither an item nor one of these is not an order.
var supplyIndicator = regexp.MustCompile(`(?i)\b(diabet|glucose|cgm|sensor)\w*`)

func hasSupplyIndicator(subject, body string) bool {
	if len(extractItems(subject, body)) > 0 {
		return true
	}
	return supplyIndicator.MatchString(subject + " " + body)
}

// scoreConfidence is a monotone feature-presence ranking, not a probability.
// Consumed only for diagnostics; the matcher never gates on it.
func scoreConfidence(c model.CandidateOrder) float64 {
	score := 0.3 // vendor predicate and status keyword both matched

	if c.OrderNumber.Present && !c.Synthesized {
		score += 0.3
	}
	if len(c.Items) > 0 {
		score += 0.25
	}
	// A tracking number only carries signal once something shipped.
	if c.TrackingNumber.Present && c.Status != model.OrderStatusOrdered {
		score += 0.15
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
