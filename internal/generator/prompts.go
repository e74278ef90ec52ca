package generator

import (
	"fmt"
	"strings"

	"github.com/ashureev/persona-coach/internal/domain"
)

// questionTier buckets the conversation by how many questions were asked.
type questionTier int

const (
	tierIntro questionTier = iota
	tierDaily
	tierAdvanced
)

func tierFor(history []domain.Message) questionTier {
	switch n := domain.CountKind(history, domain.KindPersonaQuestion); {
	case n == 0:
		return tierIntro
	case n < 3:
		return tierDaily
	default:
		return tierAdvanced
	}
}

func questionSystem(persona domain.Persona, company domain.Company) string {
	expertise := "General knowledge"
	if persona.HasExpertise() {
		expertise = strings.Join(persona.Expertise, ", ")
	}
	return fmt.Sprintf(`You are %s, a %s.
Background: %s
Expertise: %s

You are learning about %s from %s.
Product description: %s

Ask one realistic question about %s that someone in your role would ask.`,
		persona.Name, persona.Role, persona.Background, expertise,
		company.Product, company.Name, company.Description, company.Product)
}

func questionPrompt(tier questionTier, persona domain.Persona, company domain.Company) string {
	switch tier {
	case tierIntro:
		return fmt.Sprintf("As %s, ask an introductory question about getting started with %s. Keep it conversational and specific to your role as a %s.",
			persona.Name, company.Product, persona.Role)
	case tierDaily:
		return fmt.Sprintf("As %s, ask a follow-up question about using %s in your daily work. Be specific about practical usage.",
			persona.Name, company.Product)
	case tierAdvanced:
	}
	return fmt.Sprintf("As %s, ask an advanced question about optimizing or integrating %s with other tools.",
		persona.Name, company.Product)
}

func responseSystem(persona domain.Persona, company domain.Company, suggestion string) string {
	return fmt.Sprintf(`You are %s, a %s.
Background: %s
You asked a question about %s and received this suggestion: "%s"

Reply as %s would, judging whether the suggestion answers your question.
Make it clear whether you are satisfied, need more help, or found the suggestion unclear.`,
		persona.Name, persona.Role, persona.Background, company.Product, suggestion, persona.Name)
}

func responsePrompt(company domain.Company, suggestion string) string {
	return fmt.Sprintf("Respond to this suggestion about %s: '%s'. Be conversational and authentic.",
		company.Product, suggestion)
}
