package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venturedesk/pipeline/internal/workflow"
)

func TestNewSMTPValidation(t *testing.T) {
	_, err := NewSMTP(Config{Port: 587, From: "noreply@x.com"})
	require.Error(t, err) // missing host

	_, err = NewSMTP(Config{Host: "smtp.x.com", Port: 587})
	require.Error(t, err) // missing from

	_, err = NewSMTP(Config{Host: "smtp.x.com", Port: 587, From: "noreply@x.com", TestMode: true})
	require.Error(t, err) // test mode without test recipient

	s, err := NewSMTP(Config{Host: "smtp.x.com", Port: 587, From: "noreply@x.com"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestDisabledMailerFails(t *testing.T) {
	_, err := Disabled{}.Send(context.Background(), workflow.Email{To: "x@y.com", Subject: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
