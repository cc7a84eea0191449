package api

import (
	"embed"
	"html/template"

	"card-validator/pkg/form"
	"card-validator/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

type fieldView struct {
	Name        string
	Label       string
	Type        string
	Placeholder string
	Value       string
	Invalid     bool
	Wide        bool
}

type pageData struct {
	ViewID       string
	Fields       []fieldView
	Notification *models.Notification
}

var fieldLayout = []fieldView{
	{Name: models.FieldName, Label: "Name", Type: "text", Placeholder: "Name"},
	{Name: models.FieldLastname, Label: "Lastname", Type: "text", Placeholder: "Lastname"},
	{Name: models.FieldCardNumber, Label: "Card number", Type: "number", Placeholder: "Card number", Wide: true},
	{Name: models.FieldDate, Label: "Expiration date", Type: "date", Placeholder: "Expiration Date"},
	{Name: models.FieldCVV, Label: "CVV", Type: "number", Placeholder: "CVV"},
}

func newPageData(viewID string, f *form.Manager, notification *models.Notification) pageData {
	values := f.GetValues()

	fields := make([]fieldView, len(fieldLayout))
	for i, field := range fieldLayout {
		field.Value = values.Get(field.Name)
		field.Invalid = f.Invalid(field.Name)
		fields[i] = field
	}

	return pageData{
		ViewID:       viewID,
		Fields:       fields,
		Notification: notification,
	}
}
