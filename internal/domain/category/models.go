// Package category holds user-defined transaction categories and the
// keyword-based suggestion engine.
package category

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrForbidden        = errors.New("forbidden: category does not belong to user")
	ErrDuplicateName    = errors.New("category name already exists")
)

// Category is unique per (user, name). Keywords drive suggestion matching;
// a category with no keywords is never suggested.
type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateCategoryParams struct {
	Name     string
	Color    string
	Keywords []string
}

func (p *CreateCategoryParams) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if len(p.Name) > 128 {
		return errors.New("name must be 128 characters or less")
	}
	if p.Color != "" && len(p.Color) > 12 {
		return errors.New("color must be 12 characters or less")
	}
	for _, kw := range p.Keywords {
		if strings.TrimSpace(kw) == "" {
			return errors.New("keywords must not be blank")
		}
	}
	return nil
}

type UpdateCategoryParams struct {
	Name     *string
	Color    *string
	Keywords *[]string // nil = don't update, empty slice = clear all keywords
}

func (p *UpdateCategoryParams) Validate() error {
	if p.Name != nil && (*p.Name == "" || len(*p.Name) > 128) {
		return errors.New("name must be between 1 and 128 characters")
	}
	if p.Color != nil && len(*p.Color) > 12 {
		return errors.New("color must be 12 characters or less")
	}
	if p.Keywords != nil {
		for _, kw := range *p.Keywords {
			if strings.TrimSpace(kw) == "" {
				return errors.New("keywords must not be blank")
			}
		}
	}
	return nil
}
