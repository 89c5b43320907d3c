package compliance

import (
	"encoding/json"
	"testing"

	"github.com/agentlab-dev/agentlab/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIPEDAManager_ConsentLifecycle(t *testing.T) {
	m := NewPIPEDAManager()

	consentID := m.RecordConsent("user-1", "marketing emails", []string{"email"}, true, "explicit")
	assert.Contains(t, consentID, "consent_user-1_")

	status := m.CheckConsentValidity("user-1", "marketing")
	assert.True(t, status.HasValidConsent)
	require.Len(t, status.ConsentRecords, 1)

	assert.False(t, m.WithdrawConsent("someone-else", consentID))
	assert.True(t, m.WithdrawConsent("user-1", consentID))
	assert.False(t, m.CheckConsentValidity("user-1", "marketing").HasValidConsent)
}

func TestPIPEDAManager_ConsentDenied(t *testing.T) {
	m := NewPIPEDAManager()

	m.RecordConsent("user-1", "analytics", []string{"usage"}, false, "explicit")
	assert.False(t, m.CheckConsentValidity("user-1", "analytics").HasValidConsent)
}

func TestPIPEDAManager_AccessRequest(t *testing.T) {
	m := NewPIPEDAManager()
	m.StorePersonalData("user-1", map[string]any{"email": "a@b.com", "plan": "pro"})
	m.RecordConsent("user-1", "service delivery", []string{"email"}, true, "explicit")

	response := m.ProcessAccessRequest("user-1", "")
	assert.Equal(t, "access", response.RequestType)
	assert.Equal(t, "a@b.com", response.PersonalData["email"])
	assert.Len(t, response.ConsentHistory, 1)
	assert.NotEmpty(t, response.RetentionInfo["max_retention"])
	assert.NotEmpty(t, response.Disclosures)
}

func TestPIPEDAManager_ExportUserData(t *testing.T) {
	store := artifact.NewInMemoryStore()
	m := NewPIPEDAManager(func(o *PIPEDAManagerOptions) {
		o.ArtifactStore = store
	})
	m.StorePersonalData("user-1", map[string]any{"email": "a@b.com"})

	artifactID, err := m.ExportUserData("session-1", "user-1")
	require.NoError(t, err)
	assert.Contains(t, artifactID, "pipeda_export_user-1_")

	data, err := store.Get("session-1", artifactID)
	require.NoError(t, err)

	var exported PIPEDAAccessResponse
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "export", exported.RequestType)
	assert.Equal(t, "a@b.com", exported.PersonalData["email"])
}

func TestPIPEDAManager_ExportWithoutStore(t *testing.T) {
	m := NewPIPEDAManager()
	_, err := m.ExportUserData("session-1", "user-1")
	assert.Error(t, err)
}
