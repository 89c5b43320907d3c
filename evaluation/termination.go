package evaluation

import "strings"

// terminationPhrases signal that a user wants to end the conversation.
var terminationPhrases = []string{"thank you", "bye", "that's all", "goodbye"}

// DetectTermination reports whether the user message contains a phrase that
// should gracefully end the conversation. Matching is case insensitive.
func DetectTermination(userMessage string) bool {
	lower := strings.ToLower(userMessage)
	for _, phrase := range terminationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
