package parser

import "regexp"

// NewDexcomParser parses order and shipment mail from Dexcom's own store.
func NewDexcomParser() VendorParser {
	return &vendorTemplate{
		name:          "dexcom",
		supplier:      "Dexcom",
		senderDomains: []string{"@dexcom.com", "@e.dexcom.com"},
		subjectPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)dexcom`),
		},
		subjectTerms: []string{"Dexcom"},
		packSize:     3, // G6/G7 sensors ship in boxes of three
	}
}

// NewByramParser parses Byram Healthcare mail. Byram shipping notices carry
// no order number, so extractions from them run on synthesized keys.
func NewByramParser() VendorParser {
	return &vendorTemplate{
		name:          "byram",
		supplier:      "Byram Healthcare",
		senderDomains: []string{"@byramhealthcare.com", "@byram.com"},
		subjectPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)byram`),
		},
		subjectTerms: []string{"Byram"},
		packSize:     3,
	}
}

// NewCVSParser parses CVS Pharmacy order mail.
func NewCVSParser() VendorParser {
	return &vendorTemplate{
		name:          "cvs",
		supplier:      "CVS",
		senderDomains: []string{"@cvs.com", "@cvshealth.com"},
		subjectPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bCVS\b`),
		},
		subjectTerms: []string{"CVS"},
		packSize:     3,
	}
}

// NewWalgreensParser parses Walgreens order mail.
func NewWalgreensParser() VendorParser {
	return &vendorTemplate{
		name:          "walgreens",
		supplier:      "Walgreens",
		senderDomains: []string{"@walgreens.com"},
		subjectPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)walgreens`),
		},
		subjectTerms: []string{"Walgreens"},
		packSize:     1, // pharmacy fills are usually single boxes
	}
}

// NewAmazonParser parses Amazon order mail. Registered last: marketplace
// sellers cross-list supplies, and a dedicated vendor parser should win when
// both predicates match.
func NewAmazonParser() VendorParser {
	return &vendorTemplate{
		name:          "amazon",
		supplier:      "Amazon",
		senderDomains: []string{"@amazon.com"},
		subjectPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)amazon`),
		},
		subjectTerms: []string{"Amazon"},
		packSize:     1,
	}
}
