package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("john.doe+tag@example.co"))
	assert.False(t, ValidEmail("john.doe@example"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail("john doe@example.com"))
}

func TestPasswordProblems(t *testing.T) {
	assert.Empty(t, PasswordProblems("abcdefg1"))
	assert.Len(t, PasswordProblems("abc"), 2)
	assert.Equal(t, []string{"Password must contain at least one number"}, PasswordProblems("abcdefgh"))
	assert.Equal(t, []string{"Password must contain at least one letter"}, PasswordProblems("12345678"))
}

func TestCreateAccountRequestCollectsEveryMessage(t *testing.T) {
	v := NewValidator()
	req := models.CreateAccountRequest{
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "different",
		FullName:        "Someone",
		Role:            "owner",
	}

	err := v.Struct(req)
	require.Error(t, err)

	messages := ValidationMessages(err)
	assert.Contains(t, messages, "Invalid email format")
	assert.Contains(t, messages, "Password must be at least 8 characters long")
	assert.Contains(t, messages, "Password must contain at least one number")
	assert.Contains(t, messages, "Passwords do not match")
	assert.Contains(t, messages, "role must be one of: user, admin, moderator")
}

func TestUpdateRequestValidatesPointerFields(t *testing.T) {
	v := NewValidator()
	bad := "nope"
	role := models.AccountRole("root")
	err := v.Struct(models.UpdateAccountRequest{Password: &bad, ProfileFields: models.ProfileFields{Role: &role}})
	require.Error(t, err)
	messages := ValidationMessages(err)
	assert.Contains(t, messages, "Password must contain at least one number")
	assert.Contains(t, messages, "role must be one of: user, admin, moderator")

	good := "abcdefg1"
	assert.NoError(t, v.Struct(models.UpdateAccountRequest{Password: &good}))
}

func TestValidationErrorCarriesDetails(t *testing.T) {
	err := NewValidator().Struct(models.PasswordResetEmailRequest{Email: "bad"})
	appErr := validationError(err)

	assert.True(t, errors.Is(appErr, appErrors.ErrValidation))
	assert.Equal(t, "Invalid email format", appErr.Message)
	assert.Equal(t, []string{"Invalid email format"}, appErr.Details)
}
