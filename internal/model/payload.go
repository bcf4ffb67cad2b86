package model

const (
	// AppVersion is the application release the data format belongs to.
	AppVersion = "1.1.0"
	// ExportVersion is written into every backup file.
	ExportVersion = "1.0.0"
)

// ImportPayload is the portable backup file format.
type ImportPayload struct {
	Categories []Category `json:"categories"`
	Settings   *Settings  `json:"settings,omitempty"`
	Version    string     `json:"version"`
	ExportDate string     `json:"exportDate"`
	Checksum   string     `json:"checksum,omitempty"`
}
