package upload

const (
	FieldAvatar     = "avatar"
	FieldCV         = "cv"
	FieldAttachment = "attachment"

	MiB = 1 << 20
)

// Policy constrains one multipart field. An empty Allowed list means the
// field is size gated only.
type Policy struct {
	Field          string
	MaxSize        int64
	Allowed        []string
	TooLargeMsg    string
	InvalidTypeMsg string
}

func (p Policy) allows(contentType string) bool {
	if len(p.Allowed) == 0 {
		return true
	}
	for _, a := range p.Allowed {
		if a == contentType {
			return true
		}
	}
	return false
}

var policies = map[string]Policy{
	FieldAvatar: {
		Field:          FieldAvatar,
		MaxSize:        2 * MiB,
		Allowed:        []string{"image/png", "image/jpeg"},
		TooLargeMsg:    "Avatar too large",
		InvalidTypeMsg: "Invalid avatar type",
	},
	FieldCV: {
		Field:          FieldCV,
		MaxSize:        5 * MiB,
		Allowed:        []string{"application/pdf"},
		TooLargeMsg:    "CV too large",
		InvalidTypeMsg: "CV must be PDF",
	},
	FieldAttachment: {
		Field:          FieldAttachment,
		MaxSize:        8 * MiB,
		TooLargeMsg:    "Attachment too large",
		InvalidTypeMsg: "Invalid attachment type",
	},
}

// PolicyFor returns the fixed policy of a known field.
func PolicyFor(field string) (Policy, bool) {
	p, ok := policies[field]
	return p, ok
}

// FormTooLargeMsg answers an oversized body that may hold several file fields.
const FormTooLargeMsg = "Upload too large"

// TooLargeMessage is the rejection for a request body past the server limit.
// With a single known field it reuses that field's message.
func TooLargeMessage(fields ...string) string {
	if len(fields) == 1 {
		if p, ok := PolicyFor(fields[0]); ok {
			return p.TooLargeMsg
		}
	}
	return FormTooLargeMsg
}
