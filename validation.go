package portal

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
)

// passwordCharset allows letters, digits and the special characters only.
// The letter, digit and special character requirements are checked apart
// since RE2 has no lookahead.
var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]{8,}$`)
	hasLetter       = regexp.MustCompile(`[A-Za-z]`)
	hasDigit        = regexp.MustCompile(`\d`)
	hasSpecial      = regexp.MustCompile(`[@$!%*#?&]`)
)

// ValidPassword reports whether pw satisfies the password pattern.
func ValidPassword(pw string) bool {
	return passwordCharset.MatchString(pw) &&
		hasLetter.MatchString(pw) &&
		hasDigit.MatchString(pw) &&
		hasSpecial.MatchString(pw)
}

func passwordPattern(value any) error {
	s, _ := value.(string)
	if s == "" || ValidPassword(s) {
		return nil
	}
	return validation.NewError("validation_password_pattern", MsgPasswordPattern)
}

func equalTo(other, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != other {
			return validation.NewError("validation_mismatch", message)
		}
		return nil
	}
}

func emailRules(required bool) []validation.Rule {
	rules := []validation.Rule{}
	if required {
		rules = append(rules, validation.Required.Error(MsgEmailRequired))
	} else {
		rules = append(rules, validation.NilOrNotEmpty.Error(MsgEmailInvalid))
	}
	return append(rules, is.EmailFormat.Error(MsgEmailInvalid))
}

func nameRules(required bool) []validation.Rule {
	rules := []validation.Rule{}
	if required {
		rules = append(rules, validation.Required.Error(MsgNameRequired))
	} else {
		rules = append(rules, validation.NilOrNotEmpty.Error(MsgNameMinLength))
	}
	return append(rules, validation.RuneLength(nameMinLength, 0).Error(MsgNameMinLength))
}

// newPasswordRules apply to passwords being created. emptyMessage is used
// when nothing was typed.
func newPasswordRules(emptyMessage string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(emptyMessage),
		validation.RuneLength(passwordMinLength, 0).Error(MsgPasswordMinLength),
		validation.By(passwordPattern),
	}
}

// Validate checks the registration payload.
func (d SignUpData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Email, emailRules(true)...),
		validation.Field(&d.Name, nameRules(true)...),
		validation.Field(&d.Password, newPasswordRules(MsgPasswordRequired)...),
	)
}

// Validate checks the credentials payload. The password is only required:
// old accounts may predate the current pattern.
func (d SignInData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Email, emailRules(true)...),
		validation.Field(&d.Password, validation.Required.Error(MsgPasswordRequired)),
	)
}

func (d ChangePasswordData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.CurrentPassword, validation.Required.Error(MsgCurrentPasswordReq)),
		validation.Field(&d.NewPassword, newPasswordRules(MsgPasswordMinLength)...),
	)
}

// Validate checks the fields that are present. A present field may not be
// empty.
func (d UpdateProfileData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, nameRules(false)...),
		validation.Field(&d.Email, emailRules(false)...),
	)
}

// IsEmpty reports whether there is nothing to update.
func (d UpdateProfileData) IsEmpty() bool {
	return d.Name == nil && d.Email == nil
}

// ChangePasswordForm is the password form; the confirmation never leaves
// the client.
type ChangePasswordForm struct {
	CurrentPassword string `form:"currentPassword" json:"currentPassword"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

func (f ChangePasswordForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.CurrentPassword, validation.Required.Error(MsgCurrentPasswordReq)),
		validation.Field(&f.NewPassword, newPasswordRules(MsgPasswordMinLength)...),
		validation.Field(&f.ConfirmPassword,
			validation.Required.Error(MsgConfirmPasswordReq),
			validation.By(equalTo(f.NewPassword, MsgPasswordMismatch)),
		),
	)
}

func (f ChangePasswordForm) Data() ChangePasswordData {
	return ChangePasswordData{
		CurrentPassword: f.CurrentPassword,
		NewPassword:     f.NewPassword,
	}
}

// UpdateProfileForm is the profile form. Blank fields mean "unchanged".
type UpdateProfileForm struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

func (f UpdateProfileForm) Data() UpdateProfileData {
	var d UpdateProfileData
	if name := strings.TrimSpace(f.Name); name != "" {
		d.Name = &name
	}
	if email := strings.TrimSpace(f.Email); email != "" {
		d.Email = &email
	}
	return d
}

func (f UpdateProfileForm) Validate() error {
	return f.Data().Validate()
}

// ValidationErrorsToMap flattens field errors keyed by field name. Errors
// that are not validation errors are returned under "form".
func ValidationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	var appErr *errors.Error
	if errors.As(err, &appErr) && len(appErr.ValidationErrors) > 0 {
		for _, fe := range appErr.ValidationErrors {
			out[fe.Field] = fe.Message
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

// IsValidationError reports whether err holds field errors.
func IsValidationError(err error) bool {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return true
	}
	return errors.IsValidation(err)
}

// validationError converts field errors into a categorized error, keeping
// the field messages.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	return errors.FromOzzoValidation(err, "invalid input").
		WithCode(errors.CodeBadRequest)
}
