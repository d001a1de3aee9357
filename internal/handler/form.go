package handler

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	// bcryptは72バイトを超える入力を受け付けないため、パスワードは文字数ではなくバイト数で制限する
	err := v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	if err != nil {
		panic(err)
	}
	return v
}

// SignupForm はアカウント登録フォーム。
type SignupForm struct {
	Username string `form:"username" validate:"required,max=20"`
	Email    string `form:"email" validate:"required,email,max=50"`
	Password string `form:"password" validate:"required,min=6,maxbytes=72"`
}

// LoginForm はログインフォーム。
type LoginForm struct {
	Username string `form:"username" validate:"required,max=20"`
	Password string `form:"password" validate:"required"`
}

// SearchForm はトップページの選手検索フォーム。
type SearchForm struct {
	PlayerName string `form:"player_name" validate:"required,max=100"`
}

// LineCheckForm はベットライン判定フォーム。
type LineCheckForm struct {
	StatCat string `form:"stat_cat" validate:"required,oneof=points rebounds assists"`
	BetLine string `form:"bet_line" validate:"required,numeric"`
}

// signupFormFrom などはリクエストのフォーム値を前後の空白を除いて読み取る。
// パスワードは入力どおりに扱う。
func signupFormFrom(r *http.Request) SignupForm {
	return SignupForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func loginFormFrom(r *http.Request) LoginForm {
	return LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

func searchFormFrom(r *http.Request) SearchForm {
	return SearchForm{PlayerName: strings.TrimSpace(r.PostFormValue("player_name"))}
}

func lineCheckFormFrom(r *http.Request) LineCheckForm {
	return LineCheckForm{
		StatCat: strings.ToLower(strings.TrimSpace(r.PostFormValue("stat_cat"))),
		BetLine: strings.TrimSpace(r.PostFormValue("bet_line")),
	}
}

// validateForm はフォームを検証し、フィールド名ごとのエラーメッセージを返す。
// 問題がなければnilを返す。
func validateForm(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": "is invalid"}
	}

	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Must be at most %s bytes.", fe.Param())
	case "email":
		return "Must be a valid email address."
	case "numeric":
		return "Must be a number such as 24.5."
	case "oneof":
		return "Choose one of points, rebounds or assists."
	}
	return "Is invalid."
}
