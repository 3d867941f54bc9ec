package synth

import "strings"

// Disclaimer texts appended to answers that lack one.
const (
	DiagnosisDisclaimer = "**Disclaimer**: This information is not a substitute for professional advice. " +
		"Consult a qualified provider for personal guidance."
	TreatmentNotice = "**Notice**: Discuss all options with a professional. " +
		"Individual responses may vary."
	LegalNotice = "**Legal Notice**: This does not constitute legal advice. " +
		"Consult an attorney for your specific situation."
	FinancialDisclaimer = "**Financial Disclaimer**: This is not financial advice. " +
		"Consult a qualified financial advisor before making decisions."
	GeneralDisclaimer = "**General Disclaimer**: This information is for educational purposes only. " +
		"Always consult qualified professionals when needed."
)

var (
	diagnosisTerms = []string{"diagnos", "symptom", "signs of"}
	treatmentTerms = []string{"treat", "medication", "therapy"}
)

// SelectDisclaimer picks the disclaimer for a query in the given domain.
// Medical queries only get specific wording when they ask about diagnosis
// or treatment; everything unmatched gets GeneralDisclaimer.
func SelectDisclaimer(query, domain string) string {
	q := strings.ToLower(query)
	switch strings.ToLower(strings.TrimSpace(domain)) {
	case "medical", "health":
		if containsAny(q, diagnosisTerms) {
			return DiagnosisDisclaimer
		}
		if containsAny(q, treatmentTerms) {
			return TreatmentNotice
		}
	case "legal", "law":
		return LegalNotice
	case "financial", "investment":
		return FinancialDisclaimer
	}
	return GeneralDisclaimer
}

// hasDisclaimer reports whether the answer already carries disclaimer language.
func hasDisclaimer(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "disclaimer")
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
