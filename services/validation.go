package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	passwordMinLen  = 6
	passwordMaxLen  = 20
	passwordSymbols = "@$!%*#?&"
)

var (
	emailRe    = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	nicknameRe = regexp.MustCompile(`^[-\p{L}\p{N}_]+$`)

	validate = newValidator()
)

// reservedNicknames совпадают со статическими сегментами /api/v1/users/
var reservedNicknames = []string{"current", "search"}

// RegistrationData - данные формы регистрации
type RegistrationData struct {
	Nickname  string `json:"nickname" validate:"required,max=100,nickname,nickname_free"`
	Email     string `json:"email" validate:"required,max=254,email_shape"`
	Password1 string `json:"password1" validate:"required,password_policy"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

type LoginData struct {
	Email    string `json:"email" validate:"required,email_shape"`
	Password string `json:"password" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "email_shape", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	mustRegister(v, "nickname", func(fl validator.FieldLevel) bool {
		return ValidNickname(fl.Field().String())
	})
	mustRegister(v, "nickname_free", func(fl validator.FieldLevel) bool {
		return !ReservedNickname(fl.Field().String())
	})
	mustRegister(v, "password_policy", func(fl validator.FieldLevel) bool {
		return ValidPassword(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidNickname: буквы, цифры, "-" и "_"
func ValidNickname(nickname string) bool {
	return nicknameRe.MatchString(nickname)
}

func ReservedNickname(nickname string) bool {
	for _, r := range reservedNicknames {
		if strings.EqualFold(nickname, r) {
			return true
		}
	}
	return false
}

// ValidPassword: 6..20 символов, минимум одна строчная, одна заглавная,
// одна цифра и один символ из @$!%*#?&. Другие символы запрещены.
func ValidPassword(password string) bool {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return false
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return lower && upper && digit && symbol
}

// validateStruct прогоняет валидатор и собирает ошибки по полям
func validateStruct(data interface{}) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s is too long", fe.Field())
	case "email_shape":
		return "incorrect email"
	case "nickname":
		return "Nickname can only contain letters, numbers and -, _"
	case "nickname_free":
		return "This nickname is reserved"
	case "password_policy":
		return "Password should have at least: one number, one uppercase and one lowercase " +
			"character, one special symbol; and should be between 6 to 20 characters long"
	case "eqfield":
		return "passwords do not match"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
