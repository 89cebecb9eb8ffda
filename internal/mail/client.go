package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
)

// Client yields raw messages matching a search query for one user. The
// query is an opaque provider filter string; callers do not depend on its
// syntax beyond BuildQuery.
type Client interface {
	SearchEmails(ctx context.Context, userID int64, query string, maxResults int) ([]model.RawEmail, error)
}

// BuildQuery composes the provider search filter from subject keywords,
// sender domains, and a recency bound in days.
func BuildQuery(subjectTerms, senderDomains []string, windowDays int) string {
	var parts []string

	if len(subjectTerms) > 0 {
		quoted := make([]string, len(subjectTerms))
		for i, t := range subjectTerms {
			quoted[i] = fmt.Sprintf("subject:%q", t)
		}
		parts = append(parts, "("+strings.Join(quoted, " OR ")+")")
	}

	if len(senderDomains) > 0 {
		froms := make([]string, len(senderDomains))
		for i, d := range senderDomains {
			froms[i] = "from:" + strings.TrimPrefix(d, "@")
		}
		parts = append(parts, "("+strings.Join(froms, " OR ")+")")
	}

	if len(parts) == 0 {
		return fmt.Sprintf("newer_than:%dd", windowDays)
	}

	return strings.Join(parts, " OR ") + fmt.Sprintf(" newer_than:%dd", windowDays)
}
