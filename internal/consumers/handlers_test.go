package consumers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kidbook/internal/models"
)

func TestNotifiable(t *testing.T) {
	assert.False(t, notifiable(nil))
	assert.False(t, notifiable(&models.User{Email: "parent@example.com", IsActive: false}))
	assert.True(t, notifiable(&models.User{Email: "parent@example.com", IsActive: true}))
}
