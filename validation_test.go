package portal

import (
	stderrors "errors"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"SecurePass123!", true},
		{"a1@aaaaa", true},
		{"12345678!", false},
		{"SecurePass!", false},
		{"SecurePass123", false},
		{"Pass1!", false},
		{"Secure Pass123!", false},
		{"SecurePass123!^", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPassword(tt.password))
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name string
		data SignUpData
		want map[string]string
	}{
		{
			name: "valid",
			data: SignUpData{Email: "jane@example.com", Name: "Jane", Password: "SecurePass123!"},
			want: map[string]string{},
		},
		{
			name: "empty form",
			data: SignUpData{},
			want: map[string]string{
				"email":    MsgEmailRequired,
				"name":     MsgNameRequired,
				"password": MsgPasswordRequired,
			},
		},
		{
			name: "bad values",
			data: SignUpData{Email: "not-an-email", Name: "Jo", Password: "Pass1!"},
			want: map[string]string{
				"email":    MsgEmailInvalid,
				"name":     MsgNameMinLength,
				"password": MsgPasswordMinLength,
			},
		},
		{
			name: "password without special character",
			data: SignUpData{Email: "jane@example.com", Name: "Jane", Password: "SecurePass123"},
			want: map[string]string{"password": MsgPasswordPattern},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidationErrorsToMap(tt.data.Validate()))
		})
	}
}

func TestSignInValidationOnlyRequiresPassword(t *testing.T) {
	err := SignInData{Email: "jane@example.com", Password: "x"}.Validate()
	assert.NoError(t, err)

	got := ValidationErrorsToMap(SignInData{Email: "bad"}.Validate())
	assert.Equal(t, map[string]string{
		"email":    MsgEmailInvalid,
		"password": MsgPasswordRequired,
	}, got)
}

func TestChangePasswordFormValidation(t *testing.T) {
	t.Run("mismatch is reported on confirmPassword", func(t *testing.T) {
		form := ChangePasswordForm{
			CurrentPassword: "OldPass123!",
			NewPassword:     "SecurePass123!",
			ConfirmPassword: "SecurePass124!",
		}
		assert.Equal(t, map[string]string{"confirmPassword": MsgPasswordMismatch}, ValidationErrorsToMap(form.Validate()))
	})

	t.Run("empty form", func(t *testing.T) {
		assert.Equal(t, map[string]string{
			"currentPassword": MsgCurrentPasswordReq,
			"newPassword":     MsgPasswordMinLength,
			"confirmPassword": MsgConfirmPasswordReq,
		}, ValidationErrorsToMap(ChangePasswordForm{}.Validate()))
	})

	t.Run("valid form drops the confirmation", func(t *testing.T) {
		form := ChangePasswordForm{
			CurrentPassword: "OldPass123!",
			NewPassword:     "SecurePass123!",
			ConfirmPassword: "SecurePass123!",
		}
		require.NoError(t, form.Validate())
		assert.Equal(t, ChangePasswordData{CurrentPassword: "OldPass123!", NewPassword: "SecurePass123!"}, form.Data())
	})
}

func TestUpdateProfileValidation(t *testing.T) {
	assert.NoError(t, UpdateProfileData{}.Validate())
	assert.True(t, UpdateProfileData{}.IsEmpty())
	assert.NoError(t, UpdateProfileData{Name: strPtr("Jane Doe")}.Validate())

	got := ValidationErrorsToMap(UpdateProfileData{Name: strPtr("Jo"), Email: strPtr("nope")}.Validate())
	assert.Equal(t, map[string]string{
		"name":  MsgNameMinLength,
		"email": MsgEmailInvalid,
	}, got)

	got = ValidationErrorsToMap(UpdateProfileData{Name: strPtr(""), Email: strPtr("")}.Validate())
	assert.Equal(t, map[string]string{
		"name":  MsgNameMinLength,
		"email": MsgEmailInvalid,
	}, got)

	got = ValidationErrorsToMap(UpdateProfileData{Email: strPtr("")}.Validate())
	assert.Equal(t, map[string]string{"email": MsgEmailInvalid}, got)

	form := UpdateProfileForm{Name: "  ", Email: " jane@example.com "}
	data := form.Data()
	assert.Nil(t, data.Name)
	require.NotNil(t, data.Email)
	assert.Equal(t, "jane@example.com", *data.Email)
}

func TestValidationErrorKeepsFields(t *testing.T) {
	err := validationError(SignUpData{Email: "jane@example.com", Name: "Jane"}.Validate())
	require.Error(t, err)

	assert.True(t, IsValidationError(err))
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, map[string]string{"password": MsgPasswordRequired}, ValidationErrorsToMap(err))
	assert.NoError(t, validationError(nil))
}

func TestValidationErrorsToMapOtherErrors(t *testing.T) {
	assert.Empty(t, ValidationErrorsToMap(nil))
	assert.Equal(t, map[string]string{"form": "boom"}, ValidationErrorsToMap(stderrors.New("boom")))
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		level    StrengthLevel
		passed   int
	}{
		{"", StrengthNone, 0},
		{"ab", StrengthWeak, 1},
		{"abc123", StrengthWeak, 2},
		{"abcdefg1", StrengthMedium, 3},
		{"SecurePass123!", StrengthStrong, 4},
		{"~~~", StrengthNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			s := PasswordStrength(tt.password)
			assert.Equal(t, tt.level, s.Level)
			assert.Equal(t, tt.passed, s.Passed)
		})
	}

	assert.Empty(t, PasswordStrength("").Checks)
	assert.Len(t, PasswordStrength("x").Checks, 4)
	assert.Equal(t, "Strong", StrengthStrong.Label())
}
