package static

import "strings"

// FallbackReply is returned exactly once for any message that matches no
// subject alias.
const FallbackReply = "Sorry, I couldn't find that subject. Try asking about a course like 'java' or 'dbms'."

// Reply answers a chatbot message by keyword-matching subject aliases.
// Among overlapping aliases the longest match wins, so "javascript" beats
// "java" when both occur.
func (c *Catalog) Reply(message string) (string, []Link) {
	lowered := strings.ToLower(message)

	var best *Subject
	bestLen := 0
	for i := range c.subjects {
		for _, alias := range c.subjects[i].Aliases {
			if len(alias) > bestLen && strings.Contains(lowered, alias) {
				best = &c.subjects[i]
				bestLen = len(alias)
			}
		}
	}

	if best == nil {
		return FallbackReply, nil
	}

	var b strings.Builder
	b.WriteString("Here is what I have for ")
	b.WriteString(best.Name)
	b.WriteString(":")
	for _, link := range best.Links {
		b.WriteString("\n")
		b.WriteString(link.Title)
		b.WriteString(": ")
		b.WriteString(link.URL)
	}
	return b.String(), best.Links
}
