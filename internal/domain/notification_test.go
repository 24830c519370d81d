package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewNotificationPreference_Defaults(t *testing.T) {
	p := NewNotificationPreference(uuid.New(), time.Now())

	assert.True(t, p.EmailEnabled)
	assert.Equal(t, "09:00", p.DigestTime)
	assert.Empty(t, p.SlackWebhookURL)
	assert.NotNil(t, p.Events)
}

func TestValidateNotificationPreference(t *testing.T) {
	tests := []struct {
		name       string
		digestTime string
		webhook    string
		wantFields []string
	}{
		{name: "defaults", digestTime: "09:00"},
		{name: "blank digest", digestTime: ""},
		{name: "late evening", digestTime: "23:59"},
		{name: "hour out of range", digestTime: "24:00", wantFields: []string{"digest_time"}},
		{name: "single digit hour", digestTime: "9:00", wantFields: []string{"digest_time"}},
		{name: "https webhook", digestTime: "08:30", webhook: "https://hooks.slack.com/services/T/B/X"},
		{name: "ftp webhook", webhook: "ftp://example.com/hook", wantFields: []string{"slack_webhook_url"}},
		{name: "not a url", webhook: "hooks slack", wantFields: []string{"slack_webhook_url"}},
		{name: "both invalid", digestTime: "7pm", webhook: "nope", wantFields: []string{"digest_time", "slack_webhook_url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &NotificationPreference{DigestTime: tt.digestTime, SlackWebhookURL: tt.webhook}
			v := ValidateNotificationPreference(p)

			var fields []string
			for _, e := range v.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}
