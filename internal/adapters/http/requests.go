package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"caretrack/internal/domain/program"
)

const notBlankTag = "notblank"

var (
	translator       ut.Translator
	requestValidator = newValidator()
)

// newValidator builds a validator that reports JSON field names with English messages.
func newValidator() *validator.Validate {
	v := validator.New()
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = v.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		},
	)
	return v
}

func translateValidation(errs validator.ValidationErrors) []FieldProblem {
	out := make([]FieldProblem, 0, len(errs))
	for _, fe := range errs {
		// Namespace is "requestType.fields[0].name"; drop the type name.
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out = append(out, FieldProblem{Field: field, Message: fe.Translate(translator)})
	}
	return out
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

// fieldRequest describes one field of a program definition.
type fieldRequest struct {
	Name     string `json:"name" validate:"notblank,max=64"`
	Label    string `json:"label" validate:"max=120"`
	Type     string `json:"type" validate:"required,oneof=text number date"`
	Required bool   `json:"required"`
}

func (f fieldRequest) spec() program.FieldSpec {
	return program.FieldSpec{Name: f.Name, Label: f.Label, Type: program.FieldType(f.Type), Required: f.Required}
}

// createProgramRequest is the body of POST /programs.
type createProgramRequest struct {
	Name        string         `json:"name" validate:"notblank,max=120"`
	Description string         `json:"description" validate:"max=20000"`
	Fields      []fieldRequest `json:"fields" validate:"max=100,dive"`
}

func (c createProgramRequest) specs() []program.FieldSpec {
	out := make([]program.FieldSpec, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.spec())
	}
	return out
}

// updateProgramRequest is the body of PATCH /programs/{id}.
type updateProgramRequest struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Description string `json:"description" validate:"max=20000"`
}

// submitDataRequest is the JSON body of POST /programs/{id}/data.
// Values may be strings or numbers; both are coerced by the program's fields.
type submitDataRequest struct {
	Values map[string]any `json:"values" validate:"required"`
}

// raw flattens JSON values into form-style strings for p.Coerce.
// Keys that are not fields of p are dropped, as Coerce would ignore them.
func (s submitDataRequest) raw(p program.Program) (map[string]string, error) {
	out := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		f, ok := p.FieldByName(k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, &program.ValidationError{Field: f.Label, Value: fmt.Sprint(v), Message: "value must be a string or a number"}
		}
	}
	return out, nil
}

// emailReportRequest is the body of POST /programs/{id}/report/email.
type emailReportRequest struct {
	To     []string `json:"to" validate:"required,min=1,max=20,dive,email"`
	Period string   `json:"period" validate:"omitempty,oneof=this-month last-3-months this-year custom"`
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Note   string   `json:"note" validate:"max=2000"`
	Attach *bool    `json:"attach_xlsx"`
}

// loginRequest is the JSON body of POST /login.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// createAccountRequest is the body of POST /api/admin/accounts.
type createAccountRequest struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

// decodeCreateProgram reads a program definition from JSON or a form.
// Form fields arrive as parallel field_name/field_label/field_type lists;
// field_required carries the row indexes that are ticked.
func decodeCreateProgram(r *http.Request) (createProgramRequest, error) {
	var req createProgramRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			return req, fmt.Errorf("decode program: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse program form: %w", err)
	}
	req.Name = r.PostForm.Get("name")
	req.Description = r.PostForm.Get("description")

	names := r.PostForm["field_name"]
	labels := r.PostForm["field_label"]
	types := r.PostForm["field_type"]
	required := make(map[string]bool)
	for _, idx := range r.PostForm["field_required"] {
		required[idx] = true
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f := fieldRequest{Name: name, Required: required[strconv.Itoa(i)]}
		if i < len(labels) {
			f.Label = labels[i]
		}
		if i < len(types) {
			f.Type = types[i]
		}
		req.Fields = append(req.Fields, f)
	}
	return req, nil
}

// decodeField reads one field definition from JSON or a form.
func decodeField(r *http.Request) (fieldRequest, error) {
	var req fieldRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			return req, fmt.Errorf("decode field: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse field form: %w", err)
	}
	req.Name = r.PostForm.Get("name")
	req.Label = r.PostForm.Get("label")
	req.Type = r.PostForm.Get("type")
	req.Required = r.PostForm.Get("required") != ""
	return req, nil
}

// decodeUpdateProgram reads new program details from JSON or a form.
func decodeUpdateProgram(r *http.Request) (updateProgramRequest, error) {
	var req updateProgramRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			return req, fmt.Errorf("decode program details: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse program form: %w", err)
	}
	req.Name = r.PostForm.Get("name")
	req.Description = r.PostForm.Get("description")
	return req, nil
}

// decodeEmailReport reads a report email request from JSON or a form.
// The form carries recipients as one comma or newline separated list.
func decodeEmailReport(r *http.Request) (emailReportRequest, error) {
	var req emailReportRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			return req, fmt.Errorf("decode report email: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse report email form: %w", err)
	}
	for _, addr := range strings.FieldsFunc(r.PostForm.Get("to"), func(c rune) bool {
		return c == ',' || c == ';' || c == '\n' || c == '\r'
	}) {
		if addr = strings.TrimSpace(addr); addr != "" {
			req.To = append(req.To, addr)
		}
	}
	req.Period = r.PostForm.Get("period")
	req.Start = r.PostForm.Get("start")
	req.End = r.PostForm.Get("end")
	req.Note = r.PostForm.Get("note")
	attach := r.PostForm.Get("attach_xlsx") != ""
	req.Attach = &attach
	return req, nil
}
