// Package compliance implements regulation-specific privacy workflows for
// agent applications handling personal data: CCPA consumer rights, HIPAA
// safeguards for health information, PIPEDA consent management, a GDPR
// right-to-explanation model wrapper and a differentially private trainer.
//
// All managers keep their records in memory, are safe for concurrent use and
// log through the logging package.
package compliance
