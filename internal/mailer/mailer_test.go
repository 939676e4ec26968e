package mailer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryText(t *testing.T) {
	assert.Equal(t, "60 minutes", expiryText(60*time.Minute))
	assert.Equal(t, "45 minutes", expiryText(45*time.Minute))
	assert.Equal(t, "1 minute", expiryText(time.Minute))
	assert.Equal(t, "1 hour", expiryText(time.Hour))
	assert.Equal(t, "2 hours", expiryText(2*time.Hour))
	assert.Equal(t, "90 minutes", expiryText(90*time.Minute))
}
