package executor

import "strings"

// BuildContextPrompt assembles the prompt sent alongside file context:
// header, caller instructions, file contents, then a closing directive that
// tells the agent to actually perform fixes with its editing tools. Only
// meaningful for editing-enabled runs; plan-only callers should pass their
// prompt through unchanged.
func BuildContextPrompt(filesContent, customPrompt string) string {
	var b strings.Builder

	b.WriteString("# Git Workflow Analysis Request\n\n")
	b.WriteString("I'm working on a git project and need your analysis of the following changed files:\n\n")

	if trimmed := strings.TrimSpace(customPrompt); trimmed != "" {
		b.WriteString("## Analysis Instructions:\n")
		b.WriteString(trimmed)
		b.WriteString("\n\n")
	}

	b.WriteString("## Files for Analysis:\n\n")
	b.WriteString(filesContent)
	b.WriteString("\n\n")

	b.WriteString("## Please provide:\n")
	b.WriteString("1. Analysis of the changes and potential issues\n")
	b.WriteString("2. Specific recommendations for improvements\n")
	b.WriteString("3. If fixes are needed, USE THE AVAILABLE TOOLS to make the actual changes:\n")
	b.WriteString("   - Use the Edit tool to modify existing files\n")
	b.WriteString("   - Use the Write tool to create new files\n")
	b.WriteString("   - Use the MultiEdit tool for multiple changes to one file\n")
	b.WriteString("   - Use Read tool to examine files before editing\n\n")
	b.WriteString("When you identify issues that can be fixed, please ACTUALLY FIX THEM using the tools rather than just suggesting changes.\n")
	b.WriteString("Focus on actionable insights and make the necessary improvements directly to the codebase.")

	return b.String()
}
