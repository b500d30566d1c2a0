package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// UserProfile is the explicit, named-field profile built once at the
// collaborator boundary and handed to the form filler.
type UserProfile struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	FullName  string    `json:"full_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone,omitempty"`
	Location  string    `json:"location,omitempty"`
	LinkedIn  string    `json:"linkedin,omitempty" validate:"omitempty,url"`
	Website   string    `json:"website,omitempty" validate:"omitempty,url"`
	WorkAuth  string    `json:"work_auth,omitempty"`
	// MailboxLinked indicates the user connected a mailbox the verification
	// poller may read. Without it, email challenges cannot be resolved.
	MailboxLinked bool `json:"mailbox_linked"`
	// Answers holds pre-collected responses to common screening questions,
	// keyed by a normalized question slug.
	Answers map[string]string `json:"answers,omitempty"`
}

var profileValidator = validator.New()

// Validate checks the profile has the fields form filling cannot do without.
func (p *UserProfile) Validate() error {
	if err := profileValidator.Struct(p); err != nil {
		return fmt.Errorf("invalid user profile: %w", err)
	}
	return nil
}
