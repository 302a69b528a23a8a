package auth

import "math/rand"

// ProfilePictures is the catalogue new users draw their avatar from.
var ProfilePictures = []string{
	"avatar-01", "avatar-02", "avatar-03", "avatar-04",
	"avatar-05", "avatar-06", "avatar-07", "avatar-08",
	"avatar-09", "avatar-10", "avatar-11", "avatar-12",
}

// RandomProfilePicture picks an entry of ProfilePictures.
func RandomProfilePicture() string {
	return ProfilePictures[rand.Intn(len(ProfilePictures))]
}
