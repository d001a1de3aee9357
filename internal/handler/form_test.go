package handler

import (
	"strings"
	"testing"
)

func TestValidateForm_Signup(t *testing.T) {
	tests := []struct {
		name       string
		form       SignupForm
		wantFields []string
	}{
		{
			name: "valid",
			form: SignupForm{Username: "curry30", Email: "steph@example.com", Password: "splash"},
		},
		{
			name:       "all empty",
			form:       SignupForm{},
			wantFields: []string{"username", "email", "password"},
		},
		{
			name:       "bad email and short password",
			form:       SignupForm{Username: "curry30", Email: "steph", Password: "12345"},
			wantFields: []string{"email", "password"},
		},
		{
			name: "username at limit",
			form: SignupForm{Username: "abcdefghijabcdefghij", Email: "a@b.co", Password: "secret"},
		},
		{
			name:       "email too long",
			form:       SignupForm{Username: "curry30", Email: "stephen.curry.thirty.golden.state@warriors-example.com", Password: "secret"},
			wantFields: []string{"email"},
		},
		{
			name: "password at byte limit",
			form: SignupForm{Username: "curry30", Email: "a@b.co", Password: strings.Repeat("p", 72)},
		},
		{
			name:       "password over byte limit",
			form:       SignupForm{Username: "curry30", Email: "a@b.co", Password: strings.Repeat("p", 73)},
			wantFields: []string{"password"},
		},
		{
			// 26文字だがUTF-8では78バイトになる
			name:       "multibyte password over byte limit",
			form:       SignupForm{Username: "curry30", Email: "a@b.co", Password: strings.Repeat("パス", 13)},
			wantFields: []string{"password"},
		},
		{
			name:       "username too long",
			form:       SignupForm{Username: "abcdefghijabcdefghijk", Email: "a@b.co", Password: "secret"},
			wantFields: []string{"username"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateForm(tt.form)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("validateForm() = %v, want fields %v", errs, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if errs[f] == "" {
					t.Errorf("expected error for field %q, got %v", f, errs)
				}
			}
		})
	}
}

func TestValidateForm_LineCheck(t *testing.T) {
	tests := []struct {
		name    string
		form    LineCheckForm
		wantErr string
	}{
		{name: "points decimal", form: LineCheckForm{StatCat: "points", BetLine: "24.5"}},
		{name: "assists integer", form: LineCheckForm{StatCat: "assists", BetLine: "7"}},
		{name: "unknown category", form: LineCheckForm{StatCat: "steals", BetLine: "2"}, wantErr: "stat_cat"},
		{name: "non numeric line", form: LineCheckForm{StatCat: "rebounds", BetLine: "ten"}, wantErr: "bet_line"},
		{name: "missing line", form: LineCheckForm{StatCat: "rebounds"}, wantErr: "bet_line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateForm(tt.form)
			if tt.wantErr == "" {
				if errs != nil {
					t.Errorf("validateForm() = %v, want nil", errs)
				}
				return
			}
			if errs[tt.wantErr] == "" {
				t.Errorf("expected error for %q, got %v", tt.wantErr, errs)
			}
		})
	}
}

func TestValidateForm_Search(t *testing.T) {
	if errs := validateForm(SearchForm{PlayerName: "curry"}); errs != nil {
		t.Errorf("validateForm() = %v, want nil", errs)
	}
	if errs := validateForm(SearchForm{}); errs["player_name"] == "" {
		t.Errorf("expected player_name error, got %v", errs)
	}
}
