package compliance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentlab-dev/agentlab/internal/util"
	"github.com/agentlab-dev/agentlab/logging"
)

// hipaaMinimumNecessary maps an access purpose to the data fields it may
// legitimately use.
var hipaaMinimumNecessary = map[string][]string{
	"treatment":         {"patient_id", "diagnosis", "medications", "allergies", "vital_signs"},
	"payment":           {"patient_id", "insurance_info", "billing_codes", "service_dates"},
	"operations":        {"patient_id", "provider_id", "service_type", "outcome_measures"},
	"research":          {"age_range", "diagnosis_category", "treatment_response"},
	"quality_assurance": {"provider_id", "service_type", "outcome_measures", "compliance_metrics"},
}

// hipaaSafeHarborIdentifiers are the direct identifiers stripped during
// Safe Harbor de-identification.
var hipaaSafeHarborIdentifiers = []string{
	"name", "address", "city", "state", "zip", "phone", "fax", "email",
	"ssn", "mrn", "account_number", "license_number", "vehicle_id",
	"device_id", "web_url", "ip_address", "biometric_id", "photo",
}

// hipaaSensitiveDataTypes escalate breach severity when compromised.
var hipaaSensitiveDataTypes = map[string]bool{
	"ssn": true, "financial": true, "diagnosis": true, "treatment": true, "genetic": true,
}

// HIPAABreachNotificationWindow is the deadline for notifying affected
// individuals after a breach is discovered.
const HIPAABreachNotificationWindow = 60 * 24 * time.Hour

// HIPAAMinimumNecessaryResult reports which requested fields are approved
// for an access purpose.
type HIPAAMinimumNecessaryResult struct {
	Timestamp       time.Time `json:"timestamp"`
	Purpose         string    `json:"purpose"`
	RequestedFields []string  `json:"requested_fields"`
	ApprovedFields  []string  `json:"approved_fields"`
	DeniedFields    []string  `json:"denied_fields"`
	Compliant       bool      `json:"compliant"`
}

// HIPAADeidentifiedRecord is the result of Safe Harbor de-identification.
type HIPAADeidentifiedRecord struct {
	Data               map[string]any `json:"data"`
	Method             string         `json:"method"`
	RemovedIdentifiers []string       `json:"removed_identifiers"`
	Timestamp          time.Time      `json:"timestamp"`
}

// HIPAAConsent is a patient consent record. Patient identifiers are stored
// hashed.
type HIPAAConsent struct {
	ConsentID       string     `json:"consent_id"`
	PatientIDHash   string     `json:"patient_id"`
	ConsentType     string     `json:"consent_type"`
	Granted         bool       `json:"granted"`
	Timestamp       time.Time  `json:"timestamp"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Organization    string     `json:"organization"`
	CoveredEntityID string     `json:"covered_entity_id"`
}

// HIPAAAccessRecord is one entry in the PHI access log.
type HIPAAAccessRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	UserIDHash    string    `json:"user_id"`
	PatientIDHash string    `json:"patient_id"`
	DataAccessed  []string  `json:"data_accessed"`
	Purpose       string    `json:"purpose"`
	Success       bool      `json:"success"`
	SessionID     string    `json:"session_id"`
}

// HIPAABreachAssessment documents a potential breach and its notification
// requirements.
type HIPAABreachAssessment struct {
	BreachID             string    `json:"breach_id"`
	Timestamp            time.Time `json:"timestamp"`
	Description          string    `json:"incident_description"`
	AffectedIndividuals  int       `json:"affected_individuals"`
	DataTypes            []string  `json:"data_types"`
	Severity             string    `json:"severity"` // "low", "medium", "high"
	RequiresHHSNotice    bool      `json:"requires_hhs_notice"`
	RequiresMediaNotice  bool      `json:"requires_media_notice"`
	RequiresIndividual   bool      `json:"requires_individual_notice"`
	NotificationDeadline time.Time `json:"notification_deadline"`
	InvestigationStatus  string    `json:"investigation_status"`
}

// HIPAAAuditReport summarizes PHI access over a date range.
type HIPAAAuditReport struct {
	ReportID         string              `json:"report_id"`
	Organization     string              `json:"organization"`
	CoveredEntityID  string              `json:"covered_entity_id"`
	PeriodStart      time.Time           `json:"period_start"`
	PeriodEnd        time.Time           `json:"period_end"`
	GeneratedAt      time.Time           `json:"generated_at"`
	TotalAccesses    int                 `json:"total_access_attempts"`
	SuccessfulAccess int                 `json:"successful_accesses"`
	FailedAccess     int                 `json:"failed_accesses"`
	UniqueUsers      int                 `json:"unique_users"`
	UniquePatients   int                 `json:"unique_patients_accessed"`
	AccessLogs       []HIPAAAccessRecord `json:"access_logs"`
	ComplianceStatus string              `json:"compliance_status"`
}

// HIPAAManagerOptions configures the manager.
type HIPAAManagerOptions struct {
	Logger logging.Logger
	Now    func() time.Time
}

// HIPAAManager implements HIPAA safeguards for health data: minimum
// necessary validation, Safe Harbor de-identification, consent management,
// PHI access logging, breach assessment and audit reporting.
type HIPAAManager struct {
	organization    string
	coveredEntityID string

	mu        sync.RWMutex
	consents  map[string]map[string]*HIPAAConsent // patientID -> consentType -> record
	accessLog []HIPAAAccessRecord
	logger    logging.Logger
	now       func() time.Time
}

// NewHIPAAManager creates a manager for the named covered entity.
func NewHIPAAManager(organization, coveredEntityID string, optFns ...func(o *HIPAAManagerOptions)) *HIPAAManager {
	opts := HIPAAManagerOptions{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HIPAAManager{
		organization:    organization,
		coveredEntityID: coveredEntityID,
		consents:        make(map[string]map[string]*HIPAAConsent),
		logger:          opts.Logger,
		now:             opts.Now,
	}
}

// ValidateMinimumNecessary checks a field request against the minimum
// necessary standard for the given purpose. Unknown purposes approve no
// fields.
func (m *HIPAAManager) ValidateMinimumNecessary(requestedFields []string, purpose string) HIPAAMinimumNecessaryResult {
	approved := make(map[string]bool)
	for _, field := range hipaaMinimumNecessary[strings.ToLower(purpose)] {
		approved[field] = true
	}

	var necessary, unnecessary []string
	for _, field := range requestedFields {
		if approved[field] {
			necessary = append(necessary, field)
		} else {
			unnecessary = append(unnecessary, field)
		}
	}

	result := HIPAAMinimumNecessaryResult{
		Timestamp:       m.now(),
		Purpose:         purpose,
		RequestedFields: requestedFields,
		ApprovedFields:  necessary,
		DeniedFields:    unnecessary,
		Compliant:       len(unnecessary) == 0,
	}

	m.logger.Info("hipaa.minimum_necessary.validated", "purpose", purpose, "compliant", result.Compliant, "denied_fields", len(unnecessary))
	return result
}

// Deidentify strips the Safe Harbor identifiers from a record. ZIP codes are
// truncated to their first three digits, name, address and city are redacted
// in place, date_of_birth becomes an age (bucketed to "90+" above 89) and
// all other identifiers are removed.
func (m *HIPAAManager) Deidentify(data map[string]any) (*HIPAADeidentifiedRecord, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}

	var removed []string
	for _, identifier := range hipaaSafeHarborIdentifiers {
		value, present := out[identifier]
		if !present {
			continue
		}
		switch identifier {
		case "zip":
			zip := fmt.Sprint(value)
			if len(zip) >= 3 {
				out[identifier] = zip[:3] + "00"
			} else {
				delete(out, identifier)
				removed = append(removed, identifier)
			}
		case "name", "address", "city":
			out[identifier] = "REDACTED_" + strings.ToUpper(identifier)
			removed = append(removed, identifier)
		default:
			delete(out, identifier)
			removed = append(removed, identifier)
		}
	}

	if raw, present := out["date_of_birth"]; present {
		delete(out, "date_of_birth")
		removed = append(removed, "date_of_birth")
		if dob, err := time.Parse("2006-01-02", fmt.Sprint(raw)); err == nil {
			age := int(m.now().Sub(dob).Hours() / 24 / 365)
			if age > 89 {
				out["age_category"] = "90+"
			} else {
				out["age"] = age
			}
		}
	}

	m.logger.Info("hipaa.deidentification.complete", "removed_identifiers", len(removed))

	return &HIPAADeidentifiedRecord{
		Data:               out,
		Method:             "safe_harbor",
		RemovedIdentifiers: removed,
		Timestamp:          m.now(),
	}, nil
}

// RecordConsent records or revokes a patient's consent for a data use.
func (m *HIPAAManager) RecordConsent(patientID, consentType string, granted bool, expiresAt *time.Time) *HIPAAConsent {
	m.mu.Lock()
	defer m.mu.Unlock()

	consent := &HIPAAConsent{
		ConsentID:       util.NewID(),
		PatientIDHash:   m.hashIdentifier(patientID),
		ConsentType:     consentType,
		Granted:         granted,
		Timestamp:       m.now(),
		ExpiresAt:       expiresAt,
		Organization:    m.organization,
		CoveredEntityID: m.coveredEntityID,
	}

	if m.consents[patientID] == nil {
		m.consents[patientID] = make(map[string]*HIPAAConsent)
	}
	m.consents[patientID][consentType] = consent

	m.logger.Info("hipaa.consent.recorded", "patient_id", consent.PatientIDHash, "consent_type", consentType, "granted", granted)
	return consent
}

// HasConsent reports whether the patient holds a granted, unexpired consent
// for the given use.
func (m *HIPAAManager) HasConsent(patientID, consentType string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	consent, ok := m.consents[patientID][consentType]
	if !ok || !consent.Granted {
		return false
	}
	if consent.ExpiresAt != nil && m.now().After(*consent.ExpiresAt) {
		return false
	}
	return true
}

// LogPHIAccess appends a PHI access entry to the audit trail. User and
// patient identifiers are hashed before storage.
func (m *HIPAAManager) LogPHIAccess(userID, patientID string, dataAccessed []string, purpose string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := HIPAAAccessRecord{
		Timestamp:     m.now(),
		UserIDHash:    m.hashIdentifier(userID),
		PatientIDHash: m.hashIdentifier(patientID),
		DataAccessed:  dataAccessed,
		Purpose:       purpose,
		Success:       success,
		SessionID:     util.NewID(),
	}
	m.accessLog = append(m.accessLog, record)

	m.logger.Info("hipaa.phi.access", "user_id", record.UserIDHash, "patient_id", record.PatientIDHash, "purpose", purpose, "success", success)
}

// AssessBreach classifies a potential breach. More than 500 affected
// individuals, or sensitive data types, raise the severity; high severity
// requires HHS and media notification.
func (m *HIPAAManager) AssessBreach(description string, affectedIndividuals int, dataTypes []string) *HIPAABreachAssessment {
	severity := "low"
	if affectedIndividuals > 500 {
		severity = "high"
	} else if affectedIndividuals > 100 {
		severity = "medium"
	}

	for _, dataType := range dataTypes {
		if hipaaSensitiveDataTypes[dataType] {
			switch severity {
			case "low":
				severity = "medium"
			case "medium":
				severity = "high"
			}
			break
		}
	}

	assessment := &HIPAABreachAssessment{
		BreachID:             util.NewID(),
		Timestamp:            m.now(),
		Description:          description,
		AffectedIndividuals:  affectedIndividuals,
		DataTypes:            dataTypes,
		Severity:             severity,
		RequiresHHSNotice:    severity == "high",
		RequiresMediaNotice:  affectedIndividuals > 500,
		RequiresIndividual:   true,
		NotificationDeadline: m.now().Add(HIPAABreachNotificationWindow),
		InvestigationStatus:  "pending",
	}

	m.logger.Warn("hipaa.breach.detected", "breach_id", assessment.BreachID, "severity", severity, "affected", affectedIndividuals)
	return assessment
}

// GenerateAuditReport summarizes PHI access within the date range, inclusive
// on both ends.
func (m *HIPAAManager) GenerateAuditReport(start, end time.Time) *HIPAAAuditReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []HIPAAAccessRecord
	successful := 0
	users := make(map[string]bool)
	patients := make(map[string]bool)

	for _, record := range m.accessLog {
		if record.Timestamp.Before(start) || record.Timestamp.After(end) {
			continue
		}
		filtered = append(filtered, record)
		if record.Success {
			successful++
		}
		users[record.UserIDHash] = true
		patients[record.PatientIDHash] = true
	}

	failed := len(filtered) - successful
	status := "compliant"
	if failed > 0 {
		status = "requires_review"
	}

	return &HIPAAAuditReport{
		ReportID:         util.NewID(),
		Organization:     m.organization,
		CoveredEntityID:  m.coveredEntityID,
		PeriodStart:      start,
		PeriodEnd:        end,
		GeneratedAt:      m.now(),
		TotalAccesses:    len(filtered),
		SuccessfulAccess: successful,
		FailedAccess:     failed,
		UniqueUsers:      len(users),
		UniquePatients:   len(patients),
		AccessLogs:       filtered,
		ComplianceStatus: status,
	}
}

func (m *HIPAAManager) hashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier + "_" + m.coveredEntityID))
	return hex.EncodeToString(sum[:])[:16]
}
