package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"project_chatflow/internal/entities"
)

func TestCompletionStatus(t *testing.T) {
	cases := []struct {
		name                  string
		total, terminal, sent int
		want                  string
	}{
		{"no items yet", 0, 0, 0, entities.CampaignProcessing},
		{"items outstanding", 5, 3, 3, entities.CampaignProcessing},
		{"all sent", 5, 5, 5, entities.CampaignCompleted},
		{"partial failure still completes", 5, 5, 3, entities.CampaignCompleted},
		{"single success completes", 5, 5, 1, entities.CampaignCompleted},
		{"everything failed", 5, 5, 0, entities.CampaignFailed},
		{"last item flips the status", 2, 2, 1, entities.CampaignCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompletionStatus(tc.total, tc.terminal, tc.sent))
		})
	}
}
