package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func newTestValidate() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	InitValidators(validate, translator)
	return validate
}

func Test_machineIDValidation(t *testing.T) {
	validate := newTestValidate()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "short hostname", id: "e3r2p5"},
		{name: "multi digit hostname", id: "z10r12p120"},
		{name: "uppercase", id: "E3R2P5", wantErr: true},
		{name: "missing position", id: "e3r2", wantErr: true},
		{name: "missing row", id: "e3p5", wantErr: true},
		{name: "leading digit", id: "3er2p5", wantErr: true},
		{name: "trailing junk", id: "e3r2p5x", wantErr: true},
		{name: "empty", id: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Var(tt.id, "machineid")
			if (err != nil) != tt.wantErr {
				t.Errorf("validate.Var(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func Test_byteMaxValidation(t *testing.T) {
	validate := newTestValidate()

	tests := []struct {
		name    string
		s       string
		tag     string
		wantErr bool
	}{
		{name: "under the cap", s: "abcd", tag: "bytemax=5"},
		{name: "exactly the cap", s: "abcde", tag: "bytemax=5"},
		{name: "over the cap", s: "abcdef", tag: "bytemax=5", wantErr: true},
		{name: "multibyte runes count in bytes", s: "éé", tag: "bytemax=3", wantErr: true},
		{name: "multibyte runes at the cap", s: "éé", tag: "bytemax=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Var(tt.s, tt.tag)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate.Var(%q, %q) error = %v, wantErr %v", tt.s, tt.tag, err, tt.wantErr)
			}
		})
	}
}
