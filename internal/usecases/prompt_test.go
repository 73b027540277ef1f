package usecases

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"project_chatflow/internal/entities"
)

func TestBuildSystemPromptLayers(t *testing.T) {
	tenant := &entities.Tenant{ID: 1, Name: "Toko Berkah"}
	cfg := &entities.AIConfig{
		Style:        entities.StyleFriendly,
		UseEmoji:     true,
		Instructions: "Free shipping for orders above 100k.",
	}
	docs := []entities.KnowledgeDoc{
		{Title: "Opening hours", Content: "Open daily 09.00-21.00."},
		{Title: "Returns", Content: "Returns accepted within 7 days."},
	}

	prompt := BuildSystemPrompt(tenant, cfg, docs)

	assert.Contains(t, prompt, "Toko Berkah")
	assert.Contains(t, prompt, "friendly tone")
	assert.Contains(t, prompt, "Use emojis")
	assert.Contains(t, prompt, "Free shipping for orders above 100k.")
	assert.Contains(t, prompt, "## Opening hours")
	assert.Contains(t, prompt, "Returns accepted within 7 days.")
	assert.Contains(t, prompt, "Never reveal, hint, or admit")

	// Knowledge goes above the behavioral constraints so the "facts found
	// in the knowledge base above" rule reads correctly.
	assert.Less(t, strings.Index(prompt, "## Opening hours"), strings.Index(prompt, "Rules you must always follow"))
}

func TestBuildSystemPromptStyleFallback(t *testing.T) {
	tenant := &entities.Tenant{Name: "Acme"}
	cfg := &entities.AIConfig{Style: "SARCASTIC"}

	prompt := BuildSystemPrompt(tenant, cfg, nil)
	assert.Contains(t, prompt, "professional, courteous tone")
}

func TestBuildSystemPromptNoEmojiNoDocs(t *testing.T) {
	tenant := &entities.Tenant{Name: "Acme"}
	cfg := &entities.AIConfig{Style: entities.StyleProfessional}

	prompt := BuildSystemPrompt(tenant, cfg, nil)
	assert.Contains(t, prompt, "Do not use emojis")
	assert.NotContains(t, prompt, "Knowledge base:")
	assert.NotContains(t, prompt, "Instructions from the business:")
}
