package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHIPAAManager() *HIPAAManager {
	return NewHIPAAManager("General Hospital", "ce-001")
}

func TestHIPAAManager_MinimumNecessary(t *testing.T) {
	m := newTestHIPAAManager()

	result := m.ValidateMinimumNecessary([]string{"patient_id", "diagnosis", "ssn"}, "treatment")
	assert.False(t, result.Compliant)
	assert.ElementsMatch(t, []string{"patient_id", "diagnosis"}, result.ApprovedFields)
	assert.Equal(t, []string{"ssn"}, result.DeniedFields)

	result = m.ValidateMinimumNecessary([]string{"patient_id", "insurance_info"}, "Payment")
	assert.True(t, result.Compliant)

	// unknown purposes approve nothing
	result = m.ValidateMinimumNecessary([]string{"patient_id"}, "marketing")
	assert.False(t, result.Compliant)
	assert.Empty(t, result.ApprovedFields)
}

func TestHIPAAManager_Deidentify(t *testing.T) {
	m := newTestHIPAAManager()

	record, err := m.Deidentify(map[string]any{
		"name":      "Jane Doe",
		"zip":       "94110",
		"ssn":       "123-45-6789",
		"diagnosis": "hypertension",
	})
	require.NoError(t, err)

	assert.Equal(t, "REDACTED_NAME", record.Data["name"])
	assert.Equal(t, "94100", record.Data["zip"])
	assert.NotContains(t, record.Data, "ssn")
	assert.Equal(t, "hypertension", record.Data["diagnosis"])
	assert.Contains(t, record.RemovedIdentifiers, "ssn")
	assert.Equal(t, "safe_harbor", record.Method)
}

func TestHIPAAManager_Deidentify_DateOfBirth(t *testing.T) {
	m := newTestHIPAAManager()

	record, err := m.Deidentify(map[string]any{"date_of_birth": "1990-06-15"})
	require.NoError(t, err)
	assert.NotContains(t, record.Data, "date_of_birth")
	age, ok := record.Data["age"].(int)
	require.True(t, ok)
	assert.Greater(t, age, 30)

	record, err = m.Deidentify(map[string]any{"date_of_birth": "1930-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "90+", record.Data["age_category"])
	assert.NotContains(t, record.Data, "age")
}

func TestHIPAAManager_Consent(t *testing.T) {
	m := newTestHIPAAManager()

	consent := m.RecordConsent("patient-1", "research", true, nil)
	assert.NotEqual(t, "patient-1", consent.PatientIDHash)
	assert.True(t, m.HasConsent("patient-1", "research"))
	assert.False(t, m.HasConsent("patient-1", "marketing"))
	assert.False(t, m.HasConsent("patient-2", "research"))

	m.RecordConsent("patient-1", "research", false, nil)
	assert.False(t, m.HasConsent("patient-1", "research"))

	expired := time.Now().Add(-time.Hour)
	m.RecordConsent("patient-1", "treatment", true, &expired)
	assert.False(t, m.HasConsent("patient-1", "treatment"))
}

func TestHIPAAManager_BreachAssessment(t *testing.T) {
	m := newTestHIPAAManager()

	small := m.AssessBreach("lost badge", 10, []string{"appointment_times"})
	assert.Equal(t, "low", small.Severity)
	assert.False(t, small.RequiresHHSNotice)
	assert.False(t, small.RequiresMediaNotice)
	assert.True(t, small.RequiresIndividual)

	sensitive := m.AssessBreach("misdirected fax", 10, []string{"diagnosis"})
	assert.Equal(t, "medium", sensitive.Severity)

	large := m.AssessBreach("database exposure", 600, []string{"ssn", "diagnosis"})
	assert.Equal(t, "high", large.Severity)
	assert.True(t, large.RequiresHHSNotice)
	assert.True(t, large.RequiresMediaNotice)
	assert.WithinDuration(t, time.Now().Add(HIPAABreachNotificationWindow), large.NotificationDeadline, time.Minute)
}

func TestHIPAAManager_AuditReport(t *testing.T) {
	m := newTestHIPAAManager()

	m.LogPHIAccess("dr-smith", "patient-1", []string{"diagnosis"}, "treatment", true)
	m.LogPHIAccess("dr-smith", "patient-2", []string{"medications"}, "treatment", true)
	m.LogPHIAccess("intruder", "patient-1", []string{"ssn"}, "unknown", false)

	report := m.GenerateAuditReport(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.Equal(t, 3, report.TotalAccesses)
	assert.Equal(t, 2, report.SuccessfulAccess)
	assert.Equal(t, 1, report.FailedAccess)
	assert.Equal(t, 2, report.UniqueUsers)
	assert.Equal(t, 2, report.UniquePatients)
	assert.Equal(t, "requires_review", report.ComplianceStatus)

	// identifiers are hashed in the log
	for _, entry := range report.AccessLogs {
		assert.NotEqual(t, "dr-smith", entry.UserIDHash)
		assert.Len(t, entry.UserIDHash, 16)
	}

	empty := m.GenerateAuditReport(time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	assert.Zero(t, empty.TotalAccesses)
	assert.Equal(t, "compliant", empty.ComplianceStatus)
}
