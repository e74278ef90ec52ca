package domain

// Company is a catalog entry describing the product a persona learns about.
type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Product     string `json:"product"`
	Description string `json:"description"`
	Category    string `json:"category"`
}
