package compliance

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/logging"
)

// PIPEDAConsent is a recorded user consent for a data collection purpose.
type PIPEDAConsent struct {
	ConsentID    string     `json:"consent_id"`
	UserID       string     `json:"user_id"`
	Purpose      string     `json:"purpose"`
	DataTypes    []string   `json:"data_types"`
	ConsentGiven bool       `json:"consent_given"`
	Method       string     `json:"method"` // "explicit", "implied", "opt-in"
	Timestamp    time.Time  `json:"timestamp"`
	Withdrawn    bool       `json:"withdrawn"`
	WithdrawnAt  *time.Time `json:"withdrawn_at,omitempty"`
}

// PIPEDADisclosure documents a third-party disclosure of personal data.
type PIPEDADisclosure struct {
	Recipient    string `json:"recipient"`
	Purpose      string `json:"purpose"`
	Date         string `json:"date"`
	ConsentBasis string `json:"consent_basis"`
}

// PIPEDAAccessResponse bundles everything returned for an access request.
type PIPEDAAccessResponse struct {
	RequestID      string             `json:"request_id"`
	UserID         string             `json:"user_id"`
	RequestType    string             `json:"request_type"`
	RequestDate    time.Time          `json:"request_date"`
	PersonalData   map[string]any     `json:"personal_data"`
	ConsentHistory []PIPEDAConsent    `json:"consent_history"`
	RetentionInfo  map[string]string  `json:"data_retention_info"`
	Disclosures    []PIPEDADisclosure `json:"third_party_disclosures"`
}

// PIPEDAConsentStatus reports whether valid consent exists for a purpose.
type PIPEDAConsentStatus struct {
	UserID          string          `json:"user_id"`
	Purpose         string          `json:"purpose"`
	HasValidConsent bool            `json:"has_valid_consent"`
	ConsentRecords  []PIPEDAConsent `json:"consent_records,omitempty"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// PIPEDAManagerOptions configures the manager.
type PIPEDAManagerOptions struct {
	Logger logging.Logger
	Now    func() time.Time
	// ArtifactStore receives data portability exports. Nil disables export.
	ArtifactStore core.ArtifactStore
}

// PIPEDAManager handles Personal Information Protection and Electronic
// Documents Act workflows: consent recording and withdrawal, access
// requests and data portability exports.
type PIPEDAManager struct {
	mu        sync.RWMutex
	consents  map[string]*PIPEDAConsent
	requests  map[string]*PIPEDAAccessResponse
	dataStore map[string]map[string]any
	artifacts core.ArtifactStore
	logger    logging.Logger
	now       func() time.Time
}

// NewPIPEDAManager creates an empty PIPEDA compliance manager.
func NewPIPEDAManager(optFns ...func(o *PIPEDAManagerOptions)) *PIPEDAManager {
	opts := PIPEDAManagerOptions{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PIPEDAManager{
		consents:  make(map[string]*PIPEDAConsent),
		requests:  make(map[string]*PIPEDAAccessResponse),
		dataStore: make(map[string]map[string]any),
		artifacts: opts.ArtifactStore,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// StorePersonalData records personal data for a user.
func (m *PIPEDAManager) StorePersonalData(userID string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dataStore[userID] == nil {
		m.dataStore[userID] = make(map[string]any)
	}
	for k, v := range data {
		m.dataStore[userID][k] = v
	}
}

// RecordConsent records user consent for a collection purpose and returns
// the consent record ID.
func (m *PIPEDAManager) RecordConsent(userID, purpose string, dataTypes []string, consentGiven bool, method string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if method == "" {
		method = "explicit"
	}

	now := m.now()
	consentID := fmt.Sprintf("consent_%s_%s", userID, now.Format("20060102_150405"))
	m.consents[consentID] = &PIPEDAConsent{
		ConsentID:    consentID,
		UserID:       userID,
		Purpose:      purpose,
		DataTypes:    dataTypes,
		ConsentGiven: consentGiven,
		Method:       method,
		Timestamp:    now,
	}

	m.logger.Info("pipeda.consent.recorded", "consent_id", consentID, "user_id", userID, "purpose", purpose, "given", consentGiven)
	return consentID
}

// WithdrawConsent marks a consent as withdrawn. It fails when the consent
// does not exist or belongs to another user.
func (m *PIPEDAManager) WithdrawConsent(userID, consentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	consent, ok := m.consents[consentID]
	if !ok || consent.UserID != userID {
		return false
	}

	now := m.now()
	consent.Withdrawn = true
	consent.WithdrawnAt = &now

	m.logger.Info("pipeda.consent.withdrawn", "consent_id", consentID, "user_id", userID)
	return true
}

// ProcessAccessRequest returns the user's personal data together with their
// consent history, retention policy and third-party disclosures.
func (m *PIPEDAManager) ProcessAccessRequest(userID, requestType string) *PIPEDAAccessResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	if requestType == "" {
		requestType = "access"
	}

	now := m.now()
	response := &PIPEDAAccessResponse{
		RequestID:      fmt.Sprintf("req_%s_%s", userID, now.Format("20060102_150405")),
		UserID:         userID,
		RequestType:    requestType,
		RequestDate:    now,
		PersonalData:   copyDataLocked(m.dataStore[userID]),
		ConsentHistory: m.userConsentsLocked(userID),
		RetentionInfo: map[string]string{
			"policy":            "Personal data retained for business purposes only",
			"max_retention":     "7 years",
			"deletion_schedule": "Automatic deletion after retention period",
		},
		Disclosures: []PIPEDADisclosure{{
			Recipient:    "Analytics Service Provider",
			Purpose:      "Website performance analysis",
			Date:         "2024-01-15",
			ConsentBasis: "Explicit consent for analytics",
		}},
	}

	m.requests[response.RequestID] = response
	m.logger.Info("pipeda.access_request.processed", "request_id", response.RequestID, "user_id", userID, "type", requestType)
	return response
}

// CheckConsentValidity reports whether the user holds granted, unwithdrawn
// consent covering the purpose.
func (m *PIPEDAManager) CheckConsentValidity(userID, purpose string) PIPEDAConsentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var valid []PIPEDAConsent
	for _, consent := range m.consents {
		if consent.UserID == userID &&
			strings.Contains(consent.Purpose, purpose) &&
			consent.ConsentGiven && !consent.Withdrawn {
			valid = append(valid, *consent)
		}
	}

	return PIPEDAConsentStatus{
		UserID:          userID,
		Purpose:         purpose,
		HasValidConsent: len(valid) > 0,
		ConsentRecords:  valid,
		CheckedAt:       m.now(),
	}
}

// ExportUserData serializes the user's access request response to JSON and
// saves it as a session artifact for data portability. It returns the
// artifact ID.
func (m *PIPEDAManager) ExportUserData(sessionID, userID string) (string, error) {
	if m.artifacts == nil {
		return "", fmt.Errorf("no artifact store configured for data export")
	}

	response := m.ProcessAccessRequest(userID, "export")
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize export: %w", err)
	}

	artifactID := fmt.Sprintf("pipeda_export_%s_%s", userID, m.now().Format("20060102_150405"))
	if err := m.artifacts.Save(sessionID, artifactID, data); err != nil {
		return "", fmt.Errorf("failed to save export artifact: %w", err)
	}

	m.logger.Info("pipeda.export.saved", "artifact_id", artifactID, "user_id", userID, "bytes", len(data))
	return artifactID, nil
}

func (m *PIPEDAManager) userConsentsLocked(userID string) []PIPEDAConsent {
	var consents []PIPEDAConsent
	for _, consent := range m.consents {
		if consent.UserID == userID {
			consents = append(consents, *consent)
		}
	}
	return consents
}

func copyDataLocked(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
