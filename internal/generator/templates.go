package generator

import (
	"fmt"
	"strings"

	"github.com/ashureev/persona-coach/internal/domain"
)

// Question templates by tier: index 0 opens a session, 1..5 cover daily
// usage, 6..9 cover integration and advanced topics.
var questionTemplates = []string{
	"I'm new to {product} and I'm not sure where to start. What are the basic features I should know about?",
	"How do I set up my account for {product}? Are there any important settings I should configure first?",
	"What are the most common tasks people use {product} for in my role as a {role}?",
	"I'm having trouble understanding how to navigate the {product} interface. Can you guide me through it?",
	"What are some best practices for using {product} effectively in my daily work?",
	"How do I integrate {product} with other tools I'm already using?",
	"Are there any common mistakes I should avoid when starting with {product}?",
	"What training resources or documentation would you recommend for {product}?",
	"How do I measure success or track my progress with {product}?",
	"What are the key differences between {product} and similar tools I might have used before?",
}

const (
	dailyFirst    = 1
	dailyCount    = 5
	advancedFirst = 6
)

var satisfiedTemplates = []string{
	"That's exactly what I needed to know! Thank you for the clear explanation. I feel much more confident about using {product} now.",
	"Perfect! That answered my question completely. I think I have everything I need to get started with {product}.",
	"Great advice! That makes total sense and I can see how it applies to my work as a {role}. I'm ready to try it out.",
	"Excellent suggestion! I hadn't thought about it that way. This will definitely help me use {product} more effectively.",
	"Thank you! That's a comprehensive answer that covers all my concerns about {product}. I'm excited to implement this.",
}

var needsMoreTemplates = []string{
	"That's helpful, but I'm still a bit confused about the specific steps. Could you walk me through it in more detail?",
	"I understand the concept, but I'm not sure how to apply it to my specific situation as a {role}. Can you give me a more concrete example?",
	"Thanks for the explanation! I have a follow-up question though - what if I encounter specific issues while using {product}?",
	"That makes sense, but I'm wondering about the technical requirements. What do I need to have in place before I can use {product} this way?",
	"Good point! But how does this feature in {product} compare to what I'm currently doing? Will I need to change my entire workflow?",
}

var unclearTemplates = []string{
	"I'm not sure I follow. Could you explain that in simpler terms? I'm fairly new to this type of technology.",
	"That's interesting, but I don't think that addresses my specific question about {product}. Could you clarify?",
	"I'm a bit lost. Can we step back and focus on the basics of {product} first?",
	"I think there might be some confusion. Let me rephrase my question about {product}...",
	"That sounds complex. Is there a simpler way to approach this with {product}?",
}

var followUps = []string{
	" Specifically, I'd like to know more about the implementation process.",
	" Also, what are the potential challenges I might face?",
	" Could you provide a step-by-step breakdown?",
	" What would be the timeline for getting this set up?",
	" Are there any prerequisites I should be aware of?",
}

// NoSuggestionReply is returned when there is nothing to react to yet.
const NoSuggestionReply = "I didn't receive any suggestion. Could you please provide some guidance?"

func responseTemplates(status domain.Status) ([]string, error) {
	switch status {
	case domain.StatusSatisfied:
		return satisfiedTemplates, nil
	case domain.StatusNeedsMore:
		return needsMoreTemplates, nil
	case domain.StatusUnclear:
		return unclearTemplates, nil
	case domain.StatusNone:
	}
	return nil, fmt.Errorf("no response templates for status %q", status)
}

func render(template string, persona domain.Persona, company domain.Company) string {
	return strings.NewReplacer(
		"{product}", company.Product,
		"{role}", persona.Role,
		"{company}", company.Name,
	).Replace(template)
}

func expertiseClause(persona domain.Persona) string {
	return fmt.Sprintf(" Given my background in %s, are there any specific features I should focus on?",
		strings.Join(persona.Expertise, ", "))
}
