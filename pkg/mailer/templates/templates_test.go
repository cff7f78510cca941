package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brand = Brand{AppName: "Readly", CompanyName: "Readly srl", ClientURI: "http://localhost:5173/"}

func TestRender_VerifyEmail(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	data := NewEmailData(brand, VerifyEmail, "Ada", "ada@example.com",
		WithCode("482913"), WithTime(now), WithExpiry(now, 24*time.Hour))

	subject, text, html, err := Render(VerifyEmail, data)
	require.NoError(t, err)

	assert.Equal(t, "Verify your Readly email address", subject)
	assert.Contains(t, text, "482913")
	assert.Contains(t, text, "24 hours")
	assert.Contains(t, html, "482913")
	assert.Contains(t, html, "2025 Readly srl")
}

func TestRender_ResetPasswordEscapesHTML(t *testing.T) {
	data := NewEmailData(brand, ResetPassword, "<b>Eve</b>", "eve@example.com",
		WithResetURL(brand.ClientURI+"reset-password/abc"), WithExpiry(time.Now(), time.Hour))

	subject, text, html, err := Render(ResetPassword, data)
	require.NoError(t, err)

	assert.Equal(t, "Reset your Readly password", subject)
	assert.Contains(t, text, "reset-password/abc")
	assert.Contains(t, text, "1 hour")
	assert.Contains(t, html, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Eve</b>")
}

func TestRender_AllTemplatesExist(t *testing.T) {
	data := NewEmailData(brand, "", "Ada", "ada@example.com", WithTime(time.Now()))
	for _, name := range []string{VerifyEmail, Welcome, ResetPassword, ResetSuccess} {
		subject, _, _, err := Render(name, data)
		require.NoError(t, err, name)
		assert.NotEmpty(t, subject, name)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, _, err := Render("nope", EmailData{})
	assert.Error(t, err)
}

func TestNewEmailData_TrimsClientURI(t *testing.T) {
	d := NewEmailData(brand, Welcome, "Ada", "ada@example.com")
	assert.Equal(t, "http://localhost:5173", d.ClientURI)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "24 hours", humanDuration(24*time.Hour))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "7 days", humanDuration(7*24*time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
}
