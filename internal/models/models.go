package models

// Record represents a character from the catalog.
// The zero value has ID 0, empty strings and no thumbnail; ID 0 means "absent".
type Record struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	ResourceURI string    `json:"resourceURI" yaml:"resourceuri,omitempty"`
	Thumbnail   *ImageRef `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// CatalogResponse is the envelope wrapping every successful character response
type CatalogResponse struct {
	Code            int        `json:"code"`
	Status          string     `json:"status"`
	Copyright       string     `json:"copyright"`
	AttributionText string     `json:"attributionText"`
	AttributionHTML string     `json:"attributionHTML"`
	Data            *Container `json:"data"`
}

// Container holds the paging counters and the ordered results of a response
type Container struct {
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
	Count   int      `json:"count"`
	Results []Record `json:"results"`
}

// ErrorResponse is the body shape the API uses for application-level errors.
// Code is a string on some endpoints and a number on others, so it is kept raw.
type ErrorResponse struct {
	Code    *ErrorCode `json:"code"`
	Message *string    `json:"message"`
}
