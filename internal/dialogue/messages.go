package dialogue

import (
	"fmt"
	"strings"
)

const (
	openingMessage  = "Hello! I'm your Phone Advisor. How can I assist you today? Tell me what you're looking for!"
	greetingReply   = "Hello! I'm your Phone Advisor. How can I assist you today? Tell me what kind of phone you are looking for. For example: 'I need a phone under ₹20000 with a good camera'."
	thanksReply     = "You're most welcome! Happy to assist. Is there anything else you'd like to refine or search for?"
	helpReply       = "I can help you find phones based on your preferences. You can ask for a phone 'under ₹25000', with '8GB RAM', for 'gaming', with 'good camera', or specific brands like 'Samsung'. Just tell me what you're looking for!"
	startPrompt     = "To help you better, please tell me what kind of phone you are looking for. For example, 'a phone under ₹15000' or 'a gaming phone with good battery'."
	needCriteria    = "I need some criteria (like price, RAM, or use case) before I can search for phones. What are you looking for?"
	declinedReply   = "No problem. What changes would you like to make, or what else are you looking for?"
	fallbackReply   = "I'm still learning! Could you please rephrase or tell me more about what you're looking for?"
	genericSearch   = "Understood! Searching for phones based on what we've discussed."
	searchingNotice = "Searching for phones now..."
	noMatchesNotice = "No phones found matching your combined criteria. Would you like to adjust your preferences?"

	askBudget  = "What's your budget for the phone?"
	askRAM     = "And how much RAM are you looking for? (e.g., '8GB RAM')"
	askStorage = "What about storage? How much internal storage do you need? (e.g., '128GB storage')"
	askBattery = "How about battery life? Do you need a minimum battery capacity (e.g., '5000 mAh')?"
	askBrand   = "Do you have a preferred brand, or any specific features like camera or display you prioritize?"

	confirmSuffix   = "Does that sound right? Shall I search now or do you have more details?"
	confirmNoDetail = "Okay, I've noted your preferences. Shall I search for phones based on these criteria now, or do you have more details to add?"
)

func searchAcknowledgment(parts []string) string {
	if len(parts) == 0 {
		return genericSearch
	}
	return fmt.Sprintf("Understood! Searching for %s now...", strings.Join(parts, ", "))
}

func confirmationPrompt(parts []string) string {
	if len(parts) == 0 {
		return confirmNoDetail
	}
	return fmt.Sprintf("So far, you're looking for %s. %s", strings.Join(parts, ", "), confirmSuffix)
}

func isConfirmationPrompt(text string) bool {
	return strings.HasSuffix(text, confirmSuffix) || text == confirmNoDetail
}
