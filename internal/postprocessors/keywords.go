package postprocessors

import (
	"regexp"
	"strings"
)

var fallbackWordRe = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

// FinancialTerms is the vocabulary used to tag financial keywords.
var FinancialTerms = []string{
	"revenue", "profit", "loss", "income", "growth", "ebitda", "eps", "operating",
	"cash flow", "margin", "expenditure", "cost", "assets", "liabilities", "equity",
	"dividend", "roi", "expenses", "tax", "sales",
}

// FallbackKeywords returns the distinct alphabetic words of four or more
// letters in lower-cased text, in first-occurrence order, at most topN.
func FallbackKeywords(text string, topN int) []string {
	if topN <= 0 {
		return nil
	}
	seen := make(map[string]struct{})
	keywords := make([]string, 0, topN)
	for _, w := range fallbackWordRe.FindAllString(strings.ToLower(text), -1) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == topN {
			break
		}
	}
	return keywords
}

// FinancialKeywords returns the keywords whose lower-cased form equals or
// contains a financial term, preserving order.
func FinancialKeywords(keywords []string) []string {
	out := make([]string, 0)
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		for _, term := range FinancialTerms {
			if strings.Contains(lower, term) {
				out = append(out, kw)
				break
			}
		}
	}
	return out
}
