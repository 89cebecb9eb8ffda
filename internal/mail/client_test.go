package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	q := BuildQuery([]string{"Dexcom", "CVS"}, []string{"@dexcom.com", "@cvs.com"}, 30)

	assert.Contains(t, q, `subject:"Dexcom" OR subject:"CVS"`)
	assert.Contains(t, q, "from:dexcom.com OR from:cvs.com")
	assert.Contains(t, q, "newer_than:30d")
}

func TestBuildQueryNoFilters(t *testing.T) {
	assert.Equal(t, "newer_than:7d", BuildQuery(nil, nil, 7))
}
