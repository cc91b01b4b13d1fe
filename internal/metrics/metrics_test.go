package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSuggestionLookup(t *testing.T) {
	before := testutil.ToFloat64(suggestionLookups.WithLabelValues("static", "empty"))
	RecordSuggestionLookup("static", "empty")
	RecordSuggestionLookup("static", "empty")
	assert.Equal(t, before+2, testutil.ToFloat64(suggestionLookups.WithLabelValues("static", "empty")))
}

func TestRecordComplianceCheckVerdict(t *testing.T) {
	passed := testutil.ToFloat64(complianceChecks.WithLabelValues("bcbs", "passed"))
	failed := testutil.ToFloat64(complianceChecks.WithLabelValues("bcbs", "failed"))

	RecordComplianceCheck("bcbs", true)
	RecordComplianceCheck("bcbs", false)
	RecordComplianceCheck("bcbs", false)

	assert.Equal(t, passed+1, testutil.ToFloat64(complianceChecks.WithLabelValues("bcbs", "passed")))
	assert.Equal(t, failed+2, testutil.ToFloat64(complianceChecks.WithLabelValues("bcbs", "failed")))
}

func TestSetOpenSessions(t *testing.T) {
	SetOpenSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(openSessions))
	SetOpenSessions(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(openSessions))
}
