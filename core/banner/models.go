package banner

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fortytworoma/monitor/core"
)

// Config is the singleton banner state. The zero value is a disabled,
// empty banner.
type Config struct {
	Enabled bool       `json:"enabled"`
	Message string     `json:"message"`
	Expiry  *time.Time `json:"expiry"` // UTC, nil = never expires
}

// Active reports whether the banner should be visible at the given time.
// The stored config is left untouched when an expiry lapses.
func (c Config) Active(now time.Time) bool {
	if !c.Enabled || c.Message == "" {
		return false
	}
	if c.Expiry != nil && !now.Before(*c.Expiry) {
		return false
	}
	return true
}

// UpdateBanner defines what information may be provided to replace the banner.
type UpdateBanner struct {
	Enabled bool       `json:"enabled"`
	Message string     `json:"message" validate:"omitempty,bytemax=470"`
	Expiry  *time.Time `json:"expiry"`
}

func (ub *UpdateBanner) Validate(validate *validator.Validate) error {
	ub.Message = core.CleanString(ub.Message)
	return validate.Struct(ub)
}
