package classifier

import (
	"fmt"
	"strings"

	"github.com/rbright/vocode/internal/editor"
)

func taxonomyPrompt() string {
	actions := editor.Actions()
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}

	var b strings.Builder
	b.WriteString("You classify one spoken or typed utterance addressed to a code editor.\n")
	b.WriteString("Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"category": string, "confidence": number between 0 and 1, "parameters": object, "reasoning": string}`)
	b.WriteString("\n\nCategories and their parameters:\n")
	b.WriteString("- navigate_to_line: {\"line\": 1-indexed integer}\n")
	b.WriteString("- navigate_to_function: {\"name\": function or method name}\n")
	b.WriteString("- navigate_to_variable: {\"name\": variable name}\n")
	b.WriteString("- navigate_to_parent: {} (move to the scope enclosing the cursor)\n")
	b.WriteString("- run_script: {\"name\": project script or task name}\n")
	b.WriteString("- open_file: {\"name\": file name} or {\"type\": file type such as test, readme, config}\n")
	fmt.Fprintf(&b, "- editor_action: {\"action\": one of %s}\n", strings.Join(names, ", "))
	b.WriteString("- generate_code: {\"request\": what to write}\n")
	b.WriteString("- ask_question: {\"question\": the question about the code}\n")
	b.WriteString("- none: the utterance is dictated text, not a command\n")
	b.WriteString("\nUse null for parameters you cannot determine. Use a low confidence when unsure.")
	return b.String()
}
