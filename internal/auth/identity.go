package auth

// Identity is the profile of an authenticated user as returned by the
// profile endpoint. It never carries credential material.
type Identity struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Gender  string `json:"gender,omitempty"`
	DOB     string `json:"dob,omitempty"`
	Image   string `json:"image,omitempty"`
}
