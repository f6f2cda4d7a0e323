package core

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	msgInvalidUsername = "invalid username, must be between 3-16 characters"
	msgInvalidEmail    = "invalid email"
	msgInvalidPassword = "invalid password, must be at least 6 characters"
	msgInvalidImage    = "invalid image, must be a url"
	msgInvalidBio      = "invalid bio, must not be empty"
)

// LoginUser is the body of POST /api/users/login.
type LoginUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterUser is the body of POST /api/users.
type RegisterUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (u RegisterUser) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username, validation.Required.Error(msgInvalidUsername), validation.RuneLength(3, 16).Error(msgInvalidUsername)),
		validation.Field(&u.Email, validation.Required.Error(msgInvalidEmail), is.Email.Error(msgInvalidEmail)),
		validation.Field(&u.Password, validation.Required.Error(msgInvalidPassword), validation.RuneLength(6, 0).Error(msgInvalidPassword)),
	)
}

// UpdateUser is the body of PUT /api/user. Every field is optional; a present
// field must still satisfy its rule.
type UpdateUser struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Image    *string `json:"image"`
	Bio      *string `json:"bio"`
}

func (u UpdateUser) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.NilOrNotEmpty.Error(msgInvalidEmail), is.Email.Error(msgInvalidEmail)),
		validation.Field(&u.Username, validation.NilOrNotEmpty.Error(msgInvalidUsername), validation.RuneLength(3, 16).Error(msgInvalidUsername)),
		validation.Field(&u.Password, validation.NilOrNotEmpty.Error(msgInvalidPassword), validation.RuneLength(6, 0).Error(msgInvalidPassword)),
		validation.Field(&u.Image, validation.NilOrNotEmpty.Error(msgInvalidImage), is.RequestURL.Error(msgInvalidImage)),
		validation.Field(&u.Bio, validation.NilOrNotEmpty.Error(msgInvalidBio)),
	)
}

// Empty reports whether the update carries no field at all.
func (u UpdateUser) Empty() bool {
	return u.Email == nil && u.Username == nil && u.Password == nil && u.Image == nil && u.Bio == nil
}

type loginRequest struct {
	User LoginUser `json:"user"`
}

type registerRequest struct {
	User RegisterUser `json:"user"`
}

type updateRequest struct {
	User UpdateUser `json:"user"`
}

// UserResponse is the user-json payload returned by every account route.
type UserResponse struct {
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

type userEnvelope struct {
	User UserResponse `json:"user"`
}
