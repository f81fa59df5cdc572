package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a****@example.com", MaskEmail("asha@example.com"))
	assert.Equal(t, "****", MaskEmail("abc"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "****10", MaskPhone("+919876543210"))
	assert.Equal(t, "****", MaskPhone("1"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(" "))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****wxyz", MaskSecret("secret_wxyz"))
}

func TestMaskContact(t *testing.T) {
	out := MaskContact(map[string]any{
		"customer_email": "asha@example.com",
		"booking_ref":    "TRVABC",
		"customer": map[string]any{
			"phone": "+919876543210",
		},
		"participants": 3,
		"":             "dropped",
	})

	assert.Equal(t, "a****@example.com", out["customer_email"])
	assert.Equal(t, "TRVABC", out["booking_ref"])
	assert.Equal(t, "****10", out["customer"].(map[string]any)["phone"])
	assert.Equal(t, 3, out["participants"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskContact(nil))
}
