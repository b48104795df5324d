package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestIsPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+14155552671", true},
		{"14155552671", true},
		{"+442071838750", true},
		{"+0123456", false},
		{"555-1234", false},
		{"+1", false},
		{"+1234567890123456", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, IsPhone(tt.in))
		})
	}
}

func TestIsEmail(t *testing.T) {
	require.True(t, IsEmail("a@x.com"))
	require.False(t, IsEmail("a@"))
	require.False(t, IsEmail("Alice <a@x.com>"))
	require.False(t, IsEmail("a @x.com"))
	require.False(t, IsEmail(""))
}

type sample struct {
	Phone    string `validate:"omitempty,phone"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func TestRegisterAndDescribe(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	err := v.Struct(sample{Phone: "abc", Email: "nope", Password: "123"})
	require.Error(t, err)

	details := Describe(err.(validator.ValidationErrors))
	require.ElementsMatch(t, []FieldError{
		{Field: "phone", Message: "must be in E.164 format"},
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "must be at least 6 characters long"},
	}, details)

	require.NoError(t, v.Struct(sample{Email: "a@x.com", Password: "secret1"}))
}
