package worker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"ai-content-orchestrator/internal/domain/model"
)

// analyzeKeywords returns the keyword set the article should target. The
// request's own keywords win; otherwise significant words are pulled from
// the topic itself.
func analyzeKeywords(req model.GenerationRequest) []string {
	if len(req.Keywords) > 0 {
		out := make([]string, 0, len(req.Keywords))
		for _, k := range req.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				out = append(out, k)
			}
		}
		return out
	}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(req.Topic)) {
		w = strings.Trim(w, ".,:;!?\"'()")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// buildOutline produces the section plan: an introduction, one section per
// keyword (capped), and a conclusion.
func buildOutline(req model.GenerationRequest, keywords []string) []string {
	const maxSections = 5
	sections := []string{"Introduction"}
	for i, k := range keywords {
		if i >= maxSections {
			break
		}
		sections = append(sections, fmt.Sprintf("About %s", k))
	}
	sections = append(sections, "Conclusion")
	return sections
}

// buildPrompt renders the single instruction sent to a content provider.
func buildPrompt(req model.GenerationRequest, outline, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a complete article about %q.\n", req.Topic)
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", req.Tone)
	}
	if req.TargetWords > 0 {
		fmt.Fprintf(&b, "Target length: about %d words.\n", req.TargetWords)
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "Weave in these keywords naturally: %s.\n", strings.Join(keywords, ", "))
	}
	b.WriteString("Follow this outline:\n")
	for i, s := range outline {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString("Return only the article text, formatted in Markdown.")
	return b.String()
}

func countWords(s string) int { return len(strings.Fields(s)) }

// scoreSEO is a cheap static heuristic: keyword coverage plus hitting the
// requested length. Scores are clamped to [0, 100].
func scoreSEO(content string, keywords []string, targetWords int) int {
	score := 50
	if len(keywords) > 0 {
		lower := strings.ToLower(content)
		hits := 0
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				hits++
			}
		}
		score += 40 * hits / len(keywords)
	} else {
		score += 20
	}
	if targetWords > 0 {
		words := countWords(content)
		if words >= targetWords*8/10 && words <= targetWords*12/10 {
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// titleFor derives the article title from the topic.
func titleFor(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Untitled"
	}
	r, size := utf8.DecodeRuneInString(topic)
	return string(unicode.ToUpper(r)) + topic[size:]
}
