package compliance

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentlab-dev/agentlab/logging"
)

// CCPARequestType enumerates the consumer rights a request can exercise.
type CCPARequestType string

const (
	CCPARequestKnow              CCPARequestType = "know"
	CCPARequestDelete            CCPARequestType = "delete"
	CCPARequestOptOut            CCPARequestType = "opt_out"
	CCPARequestNonDiscrimination CCPARequestType = "non_discrimination"
)

// Consumer request statuses.
const (
	CCPAStatusPendingVerification = "pending_verification"
	CCPAStatusVerified            = "verified"
	CCPAStatusVerificationFailed  = "verification_failed"
)

// CCPAResponseWindow is the statutory response window for consumer requests.
const CCPAResponseWindow = 45 * 24 * time.Hour

// CCPADataCategories are the categories of personal information defined by
// the statute.
var CCPADataCategories = []string{
	"identifiers",
	"personal_info_records",
	"protected_characteristics",
	"commercial_info",
	"biometric_info",
	"internet_activity",
	"geolocation_data",
	"sensory_data",
	"professional_info",
	"education_info",
	"inferences",
}

// ccpaProtectedCategories cannot be deleted on consumer request.
var ccpaProtectedCategories = map[string]string{
	"legal_compliance": "Required by law for tax and regulatory purposes",
	"fraud_prevention": "Necessary for security and fraud detection",
}

// CCPAConsumerRequest tracks a submitted consumer request through
// verification and completion.
type CCPAConsumerRequest struct {
	RequestID        string            `json:"request_id"`
	ConsumerID       string            `json:"consumer_id"`
	Type             CCPARequestType   `json:"request_type"`
	SubmittedAt      time.Time         `json:"submitted_at"`
	VerificationData map[string]string `json:"verification_data"`
	Categories       []string          `json:"categories,omitempty"`
	Status           string            `json:"status"`
	ResponseDue      time.Time         `json:"response_due"`
	VerifiedAt       *time.Time        `json:"verified_at,omitempty"`
}

// CCPAOptOutRecord captures a do-not-sell request.
type CCPAOptOutRecord struct {
	OptOutID    string    `json:"opt_out_id"`
	ConsumerID  string    `json:"consumer_id"`
	RequestedAt time.Time `json:"requested_at"`
	Active      bool      `json:"active"`
	Method      string    `json:"method"`
	Scope       string    `json:"scope"`
}

// CCPASaleRecord documents a sale of consumer data to a third party.
type CCPASaleRecord struct {
	SaleID     string    `json:"sale_id"`
	ConsumerID string    `json:"consumer_id"`
	Buyer      string    `json:"buyer"`
	Categories []string  `json:"categories"`
	SoldAt     time.Time `json:"sold_at"`
}

// CCPACategoryReport describes one collected category in a right-to-know
// response.
type CCPACategoryReport struct {
	Category        string   `json:"category"`
	DataPoints      []string `json:"data_points"`
	Source          string   `json:"source"`
	BusinessPurpose string   `json:"business_purpose"`
	ThirdParties    []string `json:"third_parties"`
}

// CCPAKnowReport is the full right-to-know disclosure for a consumer.
type CCPAKnowReport struct {
	ConsumerID          string               `json:"consumer_id"`
	ReportDate          time.Time            `json:"report_date"`
	CategoriesCollected []CCPACategoryReport `json:"categories_collected"`
	SourcesOfInfo       []string             `json:"sources_of_info"`
	BusinessPurposes    []string             `json:"business_purposes"`
	ThirdPartyReceivers []string             `json:"third_party_recipients"`
	SaleHistory         []CCPASaleRecord     `json:"sale_history"`
	RetentionPeriod     string               `json:"data_retention_period"`
	ConsumerRights      map[string]string    `json:"consumer_rights"`
}

// CCPADeletedCategory records the outcome of deleting a single category.
type CCPADeletedCategory struct {
	Category string `json:"category"`
	Status   string `json:"deletion_status"` // "completed" or "retained"
	Reason   string `json:"reason"`
}

// CCPADeletionReport summarizes a processed deletion request.
type CCPADeletionReport struct {
	ConsumerID        string                `json:"consumer_id"`
	Status            string                `json:"status"` // "completed" or "no_data_found"
	DeletionDate      time.Time             `json:"deletion_date"`
	DeletedCategories []CCPADeletedCategory `json:"deleted_categories"`
	RetentionReasons  map[string]string     `json:"retention_reasons,omitempty"`
}

// CCPASaleEligibility reports whether a consumer's data may be sold.
type CCPASaleEligibility struct {
	ConsumerID    string             `json:"consumer_id"`
	CanSellData   bool               `json:"can_sell_data"`
	ActiveOptOuts []CCPAOptOutRecord `json:"active_opt_outs,omitempty"`
	CheckedAt     time.Time          `json:"checked_at"`
}

// CCPAManagerOptions configures the manager.
type CCPAManagerOptions struct {
	// Logger receives compliance audit messages.
	Logger logging.Logger
	// Now overrides the clock, used in tests.
	Now func() time.Time
}

// CCPAManager handles California Consumer Privacy Act workflows: consumer
// request intake and verification, right to know, deletion, do-not-sell
// opt-outs and privacy policy disclosures.
type CCPAManager struct {
	mu           sync.RWMutex
	requests     map[string]*CCPAConsumerRequest
	optOuts      map[string]*CCPAOptOutRecord
	personalInfo map[string]map[string]map[string]any // consumer -> category -> data points
	sales        []CCPASaleRecord
	logger       logging.Logger
	now          func() time.Time
}

// NewCCPAManager creates an empty CCPA compliance manager.
func NewCCPAManager(optFns ...func(o *CCPAManagerOptions)) *CCPAManager {
	opts := CCPAManagerOptions{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CCPAManager{
		requests:     make(map[string]*CCPAConsumerRequest),
		optOuts:      make(map[string]*CCPAOptOutRecord),
		personalInfo: make(map[string]map[string]map[string]any),
		logger:       opts.Logger,
		now:          opts.Now,
	}
}

// StorePersonalInfo records collected data points for a consumer category.
func (m *CCPAManager) StorePersonalInfo(consumerID, category string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.personalInfo[consumerID] == nil {
		m.personalInfo[consumerID] = make(map[string]map[string]any)
	}
	if m.personalInfo[consumerID][category] == nil {
		m.personalInfo[consumerID][category] = make(map[string]any)
	}
	for k, v := range data {
		m.personalInfo[consumerID][category][k] = v
	}
}

// SubmitRequest opens a consumer request and returns its tracking ID. The
// response is due 45 days after submission.
func (m *CCPAManager) SubmitRequest(consumerID string, requestType CCPARequestType, verification map[string]string, categories []string) (string, error) {
	if consumerID == "" {
		return "", fmt.Errorf("consumer id must not be empty")
	}
	switch requestType {
	case CCPARequestKnow, CCPARequestDelete, CCPARequestOptOut, CCPARequestNonDiscrimination:
	default:
		return "", fmt.Errorf("unknown request type %q", requestType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	requestID := fmt.Sprintf("ccpa_%s_%s_%s", requestType, consumerID, now.Format("20060102_150405"))
	m.requests[requestID] = &CCPAConsumerRequest{
		RequestID:        requestID,
		ConsumerID:       consumerID,
		Type:             requestType,
		SubmittedAt:      now,
		VerificationData: verification,
		Categories:       categories,
		Status:           CCPAStatusPendingVerification,
		ResponseDue:      now.Add(CCPAResponseWindow),
	}

	m.logger.Info("ccpa.request.submitted", "request_id", requestID, "consumer_id", consumerID, "type", string(requestType))
	return requestID, nil
}

// GetRequest returns a tracked request by ID.
func (m *CCPAManager) GetRequest(requestID string) (*CCPAConsumerRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[requestID]
	if !ok {
		return nil, false
	}
	cp := *req
	return &cp, true
}

// VerifyIdentity checks the supplied verification data against the request.
// At least two of name, email and phone must be present for the request to
// move to verified.
func (m *CCPAManager) VerifyIdentity(requestID string, verification map[string]string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[requestID]
	if !ok {
		return false
	}

	score := 0
	for _, field := range []string{"name", "email", "phone"} {
		if verification[field] != "" {
			score++
		}
	}

	if score >= 2 {
		now := m.now()
		req.Status = CCPAStatusVerified
		req.VerifiedAt = &now
		m.logger.Info("ccpa.request.verified", "request_id", requestID)
		return true
	}

	req.Status = CCPAStatusVerificationFailed
	m.logger.Warn("ccpa.request.verification_failed", "request_id", requestID, "matched_fields", score)
	return false
}

// ProcessRightToKnow builds the full disclosure of a consumer's collected
// personal information, its sources, purposes and sale history.
func (m *CCPAManager) ProcessRightToKnow(consumerID string) *CCPAKnowReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var categories []CCPACategoryReport
	for _, category := range CCPADataCategories {
		data, ok := m.personalInfo[consumerID][category]
		if !ok {
			continue
		}
		points := make([]string, 0, len(data))
		for k := range data {
			points = append(points, k)
		}
		categories = append(categories, CCPACategoryReport{
			Category:        category,
			DataPoints:      points,
			Source:          ccpaCollectionSource(category),
			BusinessPurpose: ccpaBusinessPurpose(category),
			ThirdParties:    []string{"Service providers", "Analytics partners"},
		})
	}

	var saleHistory []CCPASaleRecord
	for _, sale := range m.sales {
		if sale.ConsumerID == consumerID {
			saleHistory = append(saleHistory, sale)
		}
	}

	m.logger.Info("ccpa.right_to_know.processed", "consumer_id", consumerID, "categories", len(categories))

	return &CCPAKnowReport{
		ConsumerID:          consumerID,
		ReportDate:          m.now(),
		CategoriesCollected: categories,
		SourcesOfInfo:       []string{"Direct consumer input", "Website interaction", "Third-party partners"},
		BusinessPurposes:    []string{"Service provision", "Marketing", "Analytics", "Legal compliance"},
		ThirdPartyReceivers: []string{"Cloud service providers", "Marketing platforms", "Analytics services"},
		SaleHistory:         saleHistory,
		RetentionPeriod:     "Varies by category, typically 2-7 years",
		ConsumerRights:      ccpaConsumerRights(),
	}
}

// ProcessDeletion deletes a consumer's personal information. A nil category
// list deletes everything. Categories under a legal retention obligation are
// reported as retained instead of deleted.
func (m *CCPAManager) ProcessDeletion(consumerID string, categories []string) *CCPADeletionReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	consumerData, ok := m.personalInfo[consumerID]
	if !ok {
		return &CCPADeletionReport{
			ConsumerID:   consumerID,
			Status:       "no_data_found",
			DeletionDate: m.now(),
		}
	}

	if categories == nil {
		for category := range consumerData {
			categories = append(categories, category)
		}
	}

	var deleted []CCPADeletedCategory
	for _, category := range categories {
		if _, exists := consumerData[category]; !exists {
			continue
		}
		if reason, protected := ccpaProtectedCategories[category]; protected {
			deleted = append(deleted, CCPADeletedCategory{Category: category, Status: "retained", Reason: reason})
			continue
		}
		delete(consumerData, category)
		deleted = append(deleted, CCPADeletedCategory{Category: category, Status: "completed", Reason: "Consumer request"})
	}

	if len(consumerData) == 0 {
		delete(m.personalInfo, consumerID)
	}

	m.logger.Info("ccpa.deletion.processed", "consumer_id", consumerID, "categories", len(deleted))

	retention := make(map[string]string, len(ccpaProtectedCategories))
	for k, v := range ccpaProtectedCategories {
		retention[k] = v
	}

	return &CCPADeletionReport{
		ConsumerID:        consumerID,
		Status:            "completed",
		DeletionDate:      m.now(),
		DeletedCategories: deleted,
		RetentionReasons:  retention,
	}
}

// ProcessOptOut records a do-not-sell request and halts further sales for
// the consumer.
func (m *CCPAManager) ProcessOptOut(consumerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	optOutID := fmt.Sprintf("optout_%s_%s", consumerID, now.Format("20060102_150405"))
	m.optOuts[optOutID] = &CCPAOptOutRecord{
		OptOutID:    optOutID,
		ConsumerID:  consumerID,
		RequestedAt: now,
		Active:      true,
		Method:      "web_form",
		Scope:       "all_personal_information",
	}

	m.logger.Info("ccpa.opt_out.processed", "consumer_id", consumerID, "opt_out_id", optOutID)
	return optOutID
}

// RecordSale documents a data sale. Sales are refused for consumers with an
// active opt-out.
func (m *CCPAManager) RecordSale(consumerID, buyer string, categories []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasActiveOptOutLocked(consumerID) {
		return "", fmt.Errorf("consumer %s has opted out of data sales", consumerID)
	}

	now := m.now()
	saleID := fmt.Sprintf("sale_%s_%s", consumerID, now.Format("20060102_150405"))
	m.sales = append(m.sales, CCPASaleRecord{
		SaleID:     saleID,
		ConsumerID: consumerID,
		Buyer:      buyer,
		Categories: categories,
		SoldAt:     now,
	})

	m.logger.Info("ccpa.sale.recorded", "consumer_id", consumerID, "buyer", buyer)
	return saleID, nil
}

// CheckSaleEligibility reports whether a consumer's data may currently be
// sold, based on active opt-outs.
func (m *CCPAManager) CheckSaleEligibility(consumerID string) CCPASaleEligibility {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []CCPAOptOutRecord
	for _, record := range m.optOuts {
		if record.ConsumerID == consumerID && record.Active {
			active = append(active, *record)
		}
	}

	return CCPASaleEligibility{
		ConsumerID:    consumerID,
		CanSellData:   len(active) == 0,
		ActiveOptOuts: active,
		CheckedAt:     m.now(),
	}
}

// CCPAPolicyCategory is one category entry in the privacy policy disclosure.
type CCPAPolicyCategory struct {
	Category  string   `json:"category"`
	Examples  []string `json:"examples"`
	Collected bool     `json:"collected"`
	Sold      bool     `json:"sold"`
	Disclosed bool     `json:"disclosed"`
}

// CCPAPolicyDisclosures is the statute-required privacy policy content.
type CCPAPolicyDisclosures struct {
	EffectiveDate        string               `json:"effective_date"`
	CategoriesCollected  []CCPAPolicyCategory `json:"categories_collected"`
	SourcesOfInformation []string             `json:"sources_of_information"`
	BusinessPurposes     []string             `json:"business_purposes"`
	ThirdPartyCategories []string             `json:"third_party_categories"`
	ConsumerRights       map[string]string    `json:"consumer_rights"`
	ContactInformation   map[string]string    `json:"contact_information"`
}

// GeneratePolicyDisclosures builds the privacy policy disclosures covering
// every defined data category.
func (m *CCPAManager) GeneratePolicyDisclosures() *CCPAPolicyDisclosures {
	categories := make([]CCPAPolicyCategory, 0, len(CCPADataCategories))
	for _, category := range CCPADataCategories {
		categories = append(categories, CCPAPolicyCategory{
			Category:  category,
			Examples:  ccpaCategoryExamples(category),
			Collected: true,
			Sold:      category == "commercial_info" || category == "internet_activity",
			Disclosed: true,
		})
	}

	return &CCPAPolicyDisclosures{
		EffectiveDate:       "2024-01-01",
		CategoriesCollected: categories,
		SourcesOfInformation: []string{
			"Directly from consumers",
			"From consumer devices and browsers",
			"From third-party vendors and partners",
			"From public records and databases",
		},
		BusinessPurposes: []string{
			"Providing and improving services",
			"Customer support and communication",
			"Marketing and advertising",
			"Legal compliance and fraud prevention",
			"Business operations and analytics",
		},
		ThirdPartyCategories: []string{
			"Service providers and vendors",
			"Advertising and marketing partners",
			"Analytics providers",
			"Legal and professional advisors",
		},
		ConsumerRights: ccpaConsumerRights(),
		ContactInformation: map[string]string{
			"email":    "privacy@company.com",
			"phone":    "1-800-PRIVACY",
			"web_form": "https://company.com/ccpa-request",
		},
	}
}

func (m *CCPAManager) hasActiveOptOutLocked(consumerID string) bool {
	for _, record := range m.optOuts {
		if record.ConsumerID == consumerID && record.Active {
			return true
		}
	}
	return false
}

func ccpaConsumerRights() map[string]string {
	return map[string]string{
		"right_to_know":               "Request information about data collection and use",
		"right_to_delete":             "Request deletion of personal information",
		"right_to_opt_out":            "Opt out of sale of personal information",
		"right_to_non_discrimination": "Equal service regardless of rights exercise",
	}
}

func ccpaCollectionSource(category string) string {
	switch category {
	case "identifiers":
		return "Direct from consumer"
	case "commercial_info":
		return "Transaction records"
	case "internet_activity":
		return "Website and app usage"
	case "geolocation_data":
		return "Device GPS and IP address"
	default:
		return "Various sources"
	}
}

func ccpaBusinessPurpose(category string) string {
	switch category {
	case "identifiers":
		return "Account management and communication"
	case "commercial_info":
		return "Order processing and customer service"
	case "internet_activity":
		return "Website optimization and personalization"
	case "geolocation_data":
		return "Location-based services"
	default:
		return "Business operations"
	}
}

func ccpaCategoryExamples(category string) []string {
	switch category {
	case "identifiers":
		return []string{"Name", "Email", "Phone number", "Account ID"}
	case "commercial_info":
		return []string{"Purchase history", "Payment methods"}
	case "internet_activity":
		return []string{"Browser type", "Pages visited", "Search terms"}
	case "geolocation_data":
		return []string{"GPS coordinates", "IP address location"}
	default:
		return []string{"Various data points"}
	}
}
