package catalog

// Doctor is a public catalog entry. Listing doctors needs no credential.
type Doctor struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Speciality string `json:"speciality"`
	Degree     string `json:"degree,omitempty"`
	Experience string `json:"experience,omitempty"`
	About      string `json:"about,omitempty"`
	Fees       int    `json:"fees"`
	Image      string `json:"image,omitempty"`
	Available  bool   `json:"available"`
}

// ListResponse is the body of GET /api/doctor/list.
type ListResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Doctors []Doctor `json:"doctors"`
}
