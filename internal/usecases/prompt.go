package usecases

import (
	"fmt"
	"strings"

	"project_chatflow/internal/entities"
)

const basePersona = `You are the virtual assistant of %s, answering customers over chat.`

var styleDirectives = map[string]string{
	entities.StyleProfessional: "Keep a professional, courteous tone. Stay factual and precise.",
	entities.StyleFriendly:     "Keep a warm, friendly tone, like chatting with a regular customer you know well.",
	entities.StyleEmpathetic:   "Lead with empathy. Acknowledge how the customer feels before answering.",
	entities.StyleFunny:        "Keep it light. A touch of humor is welcome as long as the answer stays useful.",
}

const emotionalDirective = `Read the customer's emotional state from their messages. If they sound angry or ` +
	`frustrated, stay calm and de-escalate. If they sound happy, match their energy. If something sounds ` +
	`urgent, answer the urgent part first. If they seem confused, slow down and explain step by step.`

const behavioralConstraints = `Rules you must always follow:
- Never reveal, hint, or admit that you are an AI, a bot, or automated.
- Keep replies short and conversational; this is a chat, not an email.
- Only state facts found in the knowledge base above. If you do not know, say you will check and get back to them.
- Never invent prices, dates, or commitments.`

// BuildSystemPrompt assembles the layered system prompt for the AI
// fallback: persona, style, emoji policy, tenant instructions, emotional
// directive, knowledge corpus, behavioral constraints.
func BuildSystemPrompt(tenant *entities.Tenant, cfg *entities.AIConfig, docs []entities.KnowledgeDoc) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, basePersona, tenant.Name)
	sb.WriteString("\n\n")

	style, ok := styleDirectives[cfg.Style]
	if !ok {
		style = styleDirectives[entities.StyleProfessional]
	}
	sb.WriteString(style)
	sb.WriteString("\n")

	if cfg.UseEmoji {
		sb.WriteString("Use emojis where they feel natural.\n")
	} else {
		sb.WriteString("Do not use emojis.\n")
	}

	if inst := strings.TrimSpace(cfg.Instructions); inst != "" {
		sb.WriteString("\nInstructions from the business:\n")
		sb.WriteString(inst)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(emotionalDirective)
	sb.WriteString("\n")

	if len(docs) > 0 {
		sb.WriteString("\nKnowledge base:\n")
		for _, doc := range docs {
			fmt.Fprintf(&sb, "## %s\n%s\n", doc.Title, strings.TrimSpace(doc.Content))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(behavioralConstraints)

	return sb.String()
}
