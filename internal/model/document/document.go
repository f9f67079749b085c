package document

import "time"

// Document is the single uploaded file a session may hold.
type Document struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Filename   string    `json:"filename"`
	Data       []byte    `json:"data"`
	Text       string    `json:"text,omitempty"`
	Extracted  bool      `json:"extracted"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Ref points a session at its document. A stale ref must be treated as absent.
type Ref struct {
	Owner    string `json:"owner"`
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Ref returns the reference to d.
func (d Document) Ref() Ref {
	return Ref{Owner: d.Owner, ID: d.ID, Filename: d.Filename}
}

// Size returns the number of raw bytes held.
func (d Document) Size() int {
	return len(d.Data)
}

// IsZero reports whether r refers to nothing.
func (r Ref) IsZero() bool {
	return r.ID == ""
}
