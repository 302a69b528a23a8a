package model

// User is a registered account.
type User struct {
	ID           string `json:"id" bson:"_id"`
	Username     string `json:"username" bson:"username"`
	PasswordHash string `json:"-" bson:"password_hash"`
	ProfilePicID string `json:"profile_pic_id" bson:"profile_pic_id"`
}

// UserSummary is the public projection of a user.
type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfilePicID string `json:"profile_pic_id,omitempty"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		ProfilePicID: u.ProfilePicID,
	}
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login or registration.
type LoginResponse struct {
	User      UserSummary `json:"user"`
	Token     string      `json:"token"`
	IsNewUser bool        `json:"is_new_user"`
}

// ListUsersResponse wraps a list of user summaries.
type ListUsersResponse struct {
	Users []UserSummary `json:"users"`
}
