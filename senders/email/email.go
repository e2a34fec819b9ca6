package email

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/fiffu/manzil/lib/cms"
)

var (
	//go:embed contact.html
	contactHTML     string
	contactTemplate = template.Must(template.New("contact.html").Parse(contactHTML))
)

func mustFillTemplate(tmpl *template.Template, values any) string {
	buf := new(strings.Builder)
	err := tmpl.Execute(buf, values)
	if err != nil {
		return ""
	}
	return buf.String()
}

// ContactNoticeFormat tells the editors about a message left on the
// contact form.
type ContactNoticeFormat struct {
	Message cms.ContactMessage
}

func (ef *ContactNoticeFormat) Subject() string {
	return fmt.Sprintf("Manzil: new message from %s", ef.Message.Name)
}

func (ef *ContactNoticeFormat) Body() string {
	return mustFillTemplate(contactTemplate, ef)
}
