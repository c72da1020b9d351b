package descriptions

import "sort"

// Tool names exposed by the MCP server
const (
	ExtractFields = "acord_extract_fields"
	ClassifyText  = "acord_classify_text"
	ValidateFile  = "acord_validate_file"
	ServerInfo    = "acord_server_info"
)

// Tool descriptions with practical examples and use cases

const (
	ExtractFieldsDescription = `Extract the field names printed on a scanned ACORD insurance form.

**When to use:** You have a scanned ACORD form (or any image-only form PDF) and need the list of labels it asks for, such as "Named Insured" or "Policy Number".

**Why it's useful:** Scanned forms carry no AcroForm data. Every page is rendered, cleaned up and read with OCR, and each printed line is tested against the label patterns used on ACORD forms.

**Examples:**
• Map a new form revision: "List the fields on acord-25-2016.pdf"
• Compare versions: "Extract fields from acord-125-old.pdf and acord-125-new.pdf"
• Sharper scans: "Extract fields from faint-scan.pdf at dpi 400"

**Common workflows:**
1. Form onboarding: acord_validate_file → acord_extract_fields → review the list
2. Rule tuning: acord_extract_fields → copy suspicious lines → acord_classify_text

**Best practices:** 300 DPI is right for most scans. OCR is slow, so validate the file first and expect a few seconds per page.`

	ClassifyTextDescription = `Run the field-name rules over text you already have.

**When to use:** You have OCR output or typed form text and want to see which lines count as field labels and which rule matched each one.

**Why it's useful:** No PDF or OCR is needed, so results are instant. Handy for checking why a label was or was not picked up.

**Examples:**
• Debug a miss: "Classify 'Effective Date: 01/01/2024'"
• Check a block: "Classify these lines from page 2 of the ACORD 130"

**Common workflows:**
1. Explain results: acord_extract_fields → acord_classify_text on the raw line

**Best practices:** Pass one form line per text line. Rules are tried in order: colon, underscore, numbered, checkbox, fallback.`

	ValidateFileDescription = `Verify a PDF can be opened before running extraction.

**When to use:** Before acord_extract_fields, especially for uploaded or unknown files.

**Why it's useful:** Catches missing, empty, oversized and corrupt files quickly without starting OCR.

**Examples:**
• Upload check: "Validate incoming/acord-25.pdf"

**Best practices:** Always run this first in automated workflows.`

	ServerInfoDescription = `Show server settings, available tools and the PDFs in the served directory.

**When to use:** At the start of a session to discover which forms are available and how extraction is configured.

**Examples:**
• "What forms can you read?"
• "Which OCR language and DPI are in use?"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ExtractFields: ExtractFieldsDescription,
	ClassifyText:  ClassifyTextDescription,
	ValidateFile:  ValidateFileDescription,
	ServerInfo:    ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary returns the first line of a tool description
func Summary(toolName string) string {
	desc := GetToolDescription(toolName)
	for i, r := range desc {
		if r == '\n' {
			return desc[:i]
		}
	}
	return desc
}
