package understanding

import (
	"fmt"
	"strings"

	"aria/internal/port"
	"aria/internal/schema"
)

// BuildSystemPrompt returns the extraction instructions for every registered transaction type.
func BuildSystemPrompt(registry *schema.Registry) string {
	var b strings.Builder
	b.WriteString(`You are a transaction data extraction assistant. Read the conversation between a customer and an assistant and report what the customer has said about the transaction they want to make.

IMPORTANT INSTRUCTIONS:
- Classify the conversation as exactly one transaction type from the list below.
- Report evidence for every field of that type. Use null for raw_value when the field was never mentioned.
- Copy values as the customer phrased them ("next Friday", "around $200", "two adults"). Do not resolve or reformat them.
- When the customer mentions several alternatives or a range, report all of them as a JSON array of strings in the order mentioned.
- evidence_strength is one of: explicit (stated directly), implied (clearly implied), inferred (reasonable inference), speculative (weak guess), none (no evidence).
- confidence is your own certainty between 0 and 1 for the reported raw_value.
- Set explicit_confirmation to true only when the customer clearly confirmed the transaction should proceed.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation, just the raw JSON object:
{
  "transaction_type": "<type>",
  "explicit_confirmation": false,
  "fields": {
    "<field_name>": {"raw_value": null, "evidence_strength": "none", "confidence": 0.0, "explicit_confirmation_signal": false}
  }
}

TRANSACTION TYPES:
`)
	for _, d := range registry.DescribeAll() {
		fmt.Fprintf(&b, "\n%s:\n", d.Type)
		for _, f := range d.Fields {
			fmt.Fprintf(&b, "  - %s (%s", f.Name, f.Kind)
			if len(f.EnumValues) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(f.EnumValues, " | "))
			}
			if f.Importance != "" {
				fmt.Fprintf(&b, ", %s importance", f.Importance)
			}
			fmt.Fprintf(&b, "): %s\n", f.Description)
		}
	}
	return b.String()
}

// BuildUserPrompt renders the per-pass input: reference date, prior type and the conversation.
func BuildUserPrompt(input port.UnderstandInput) string {
	var b strings.Builder
	if !input.ReferenceTime.IsZero() {
		fmt.Fprintf(&b, "Today is %s (%s).\n", input.ReferenceTime.Format("2006-01-02"), input.ReferenceTime.Weekday())
	}
	if input.PriorType != nil {
		fmt.Fprintf(&b, "Earlier in this conversation the transaction was classified as %s. Change it only if the customer switched to a different transaction.\n", *input.PriorType)
	}
	b.WriteString("\nCONVERSATION:\n")
	b.WriteString(strings.TrimSpace(input.Conversation))
	b.WriteString("\n")
	return b.String()
}

// BuildPrompt concatenates the system and user prompts for providers without a system role.
func BuildPrompt(registry *schema.Registry, input port.UnderstandInput) string {
	return BuildSystemPrompt(registry) + "\n" + BuildUserPrompt(input)
}
