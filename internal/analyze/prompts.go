package analyze

import (
	"fmt"
	"strings"
	"time"

	"github.com/regwatch/regwatch/internal/domain"
)

const identifyTemplate = `You are a Pakistani Tax and Corporate Compliance Assistant.

You are given the full or partial text of an official regulation or SRO. You must operate in two phases:

First - Extraction phase:
First look carefully and identify two dates: when this document was issued, and when it becomes effective.
Then scan the document to extract the reference number.

To support this process, you are given the document title, reference number, source, and issue date.
You must scan the text to verify that these are correct, and if so, fill them in the output below.
For Reference number, only use the given one as a backup. First try to find the SRO number in the document text and give its full form.

Document title: %s
Reference: %s
Source: %s
Issue date: %s

Second - General Idea and Impact phase:
Identify the **main purpose** of this document, then summarise **key changes/obligations**. Lastly, highlight **who is affected** (e.g. individuals, companies, sectors).

Now return all this information in the following format:
1. Subject: [Regulatory Alert] FBR/IFRS Update — [Short Title] — [Effective Date]
2. Source: [e.g., Federal Board of Revenue (FBR) / International Accounting Standards Board (IASB)]
3. Date Issued: [YYYY-MM-DD]
4. Effective Date: [YYYY-MM-DD or Immediate]
5. Document Type: [SRO / Circular / IFRS Amendment / SBP Circular etc.]
6. Reference Number: [Official SRO Number, first look for an SRO and give its full form e.g. S.R.O.1437(I)/2025, if not found revert to the given reference no., if not applicable, state "N/A"]

7. General Idea: [Concise summary of main purpose, key changes/obligations]

8. Impact: [Brief analysis of compliance implications and affected parties]

If you are not given the regulation document then abort and say "No document text provided".
If there's anything you cannot find, write N/A for that field. Do not fill in anything by guesswork.

--- BEGIN DOCUMENT TEXT ---
%s
--- END DOCUMENT TEXT ---`

const classifyTemplate = `You are a Pakistani Tax and Corporate Compliance Assistant.
You will be given a regulation document, and your task is to classify it by domain.
Possible domains: Taxation, Accounting Standard, Compliance, Financial Reporting, Corporate Law, Other.

Give your answer in the following format:
Domain: [one of the possible domains]

Regulation Document: %s

--- BEGIN DOCUMENT TEXT ---
%s
--- END DOCUMENT TEXT ---`

// BuildPrompt renders the prompt for the given analysis kind.
func BuildPrompt(kind Kind, doc *domain.Document, documentText string) (string, error) {
	switch kind {
	case KindIdentify:
		return fmt.Sprintf(identifyTemplate,
			doc.Title,
			orNA(doc.ReferenceNumber),
			doc.Source,
			dateOrNA(doc.IssueDate),
			documentText,
		), nil
	case KindClassify:
		return fmt.Sprintf(classifyTemplate, doc.Title, documentText), nil
	default:
		return "", fmt.Errorf("unknown analysis kind %q", kind)
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func dateOrNA(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}
