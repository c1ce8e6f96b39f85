package dispatch

import "label-dispatch/internal/label"

// Payload is what a dispatch call prints. The set is closed: Text,
// TemplateJob and ItemLabel.
type Payload interface {
	payload()
}

// Text prints plain text, one line per text command, on the configured
// text medium.
type Text struct {
	Content string
}

// TemplateJob is a template with its elements and the data bound into them.
type TemplateJob struct {
	Template label.Template
	Elements []label.Element
	Context  label.DataContext
}

// ItemLabel prints a built-in item label layout.
type ItemLabel struct {
	Item        label.Item
	Store       *label.Store
	Format      string // small, medium or large
	IncludeQR   bool
	IncludeLogo bool
	LogoPath    string
}

func (Text) payload()        {}
func (TemplateJob) payload() {}
func (ItemLabel) payload()   {}

// Kind names the payload variant for logs and metrics
func Kind(p Payload) string {
	switch p.(type) {
	case Text:
		return "text"
	case TemplateJob:
		return "template"
	case ItemLabel:
		return "item"
	}
	return "unknown"
}
