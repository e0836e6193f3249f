package announce

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fortytworoma/monitor/core"
)

// DefaultColor is the slide background used when staff pick none.
const DefaultColor = "#3e3e60"

// BodyByteLimit caps announcement bodies. The signage player truncates
// anything above this, so we reject instead of displaying a cut slide.
const BodyByteLimit = 470

type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"`
	Color     string    `json:"color,omitempty"`
	Link      string    `json:"link,omitempty"`
	Order     int       `json:"order"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewAnnouncement contains information needed to create a new Announcement.
// Author is taken from the session, never from the request body.
type NewAnnouncement struct {
	Title     string `json:"title" validate:"required"`
	Body      string `json:"body" validate:"required,bytemax=470"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
	Link      string `json:"link" validate:"omitempty,url"`
	Published bool   `json:"published"`
	Author    string `json:"-"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	na.Link = core.CleanString(na.Link)
	if na.Color = core.CleanString(na.Color, true /* lower */); na.Color == "" {
		na.Color = DefaultColor
	}
	return validate.Struct(na)
}

// UpdateAnnouncement defines what information may be provided to modify an existing Announcement.
// Empty fields keep their current value.
type UpdateAnnouncement struct {
	Title     string `json:"title"`
	Body      string `json:"body" validate:"omitempty,bytemax=470"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
	Link      string `json:"link" validate:"omitempty,url"`
	Published *bool  `json:"published"`
}

func (ua *UpdateAnnouncement) Validate(orig Announcement, validate *validator.Validate) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}

	if body := core.CleanString(ua.Body); body != "" {
		ua.Body = body
	} else {
		ua.Body = orig.Body
	}

	if color := core.CleanString(ua.Color, true /* lower */); color != "" {
		ua.Color = color
	} else {
		ua.Color = orig.Color
	}

	if link := core.CleanString(ua.Link); link != "" {
		ua.Link = link
	} else {
		ua.Link = orig.Link
	}

	return validate.Struct(ua)
}

// ReorderRequest carries the full id set in the desired display order.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

func (rr *ReorderRequest) Validate(validate *validator.Validate) error {
	for i, id := range rr.IDs {
		rr.IDs[i] = core.CleanString(id)
	}
	return validate.Struct(rr)
}
