package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/service"
)

// errInvalidBody is returned for bodies that are not a JSON object.
var errInvalidBody = errors.New("invalid request body")

// attrs holds the raw attributes of a request body, so that an absent key,
// an explicit null and a value can be told apart in partial updates.
type attrs map[string]json.RawMessage

// decodeAttrs reads a JSON object from the body. When root is not empty the
// attributes are taken from that key ({"time_bucket": {...}}) and a body
// without it is rejected.
func decodeAttrs(w http.ResponseWriter, r *http.Request, maxBytes int64, root string) (attrs, error) {
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var top attrs
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, errInvalidBody
	}
	if root == "" {
		return top, nil
	}

	nested, ok := top[root]
	if !ok {
		return nil, fmt.Errorf("param is missing or the value is empty: %s", root)
	}
	var a attrs
	if err := json.Unmarshal(nested, &a); err != nil || a == nil {
		return nil, fmt.Errorf("param is missing or the value is empty: %s", root)
	}
	return a, nil
}

// fieldReader converts attributes into typed values and collects every type
// mismatch instead of stopping at the first one.
type fieldReader struct {
	a    attrs
	errs domain.ValidationError
}

func newFieldReader(a attrs) *fieldReader {
	return &fieldReader{a: a}
}

// Err returns the collected mismatches, if any.
func (f *fieldReader) Err() error {
	return f.errs.OrNil()
}

func (f *fieldReader) raw(name string) (json.RawMessage, bool, bool) {
	v, ok := f.a[name]
	if !ok {
		return nil, false, false
	}
	return v, true, string(bytes.TrimSpace(v)) == "null"
}

// String returns nil when the key is absent. Null reads as "".
func (f *fieldReader) String(name string) *string {
	v, present, null := f.raw(name)
	if !present {
		return nil
	}
	s := ""
	if !null {
		if err := json.Unmarshal(v, &s); err != nil {
			f.errs.Add(name, "must be a string")
			return nil
		}
	}
	return &s
}

// Int accepts JSON numbers and numeric strings.
func (f *fieldReader) Int(name string) service.Optional[int] {
	v, present, null := f.raw(name)
	switch {
	case !present:
		return service.Optional[int]{}
	case null:
		return service.Null[int]()
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			f.errs.Add(name, "is not a number")
			return service.Optional[int]{}
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return service.Null[int]()
		}
		n = json.Number(s)
	}

	i, err := strconv.Atoi(n.String())
	if err != nil {
		f.errs.Add(name, "must be an integer")
		return service.Optional[int]{}
	}
	return service.Some(i)
}

// IntPtr is Int for fields where null and absent both mean "not given".
func (f *fieldReader) IntPtr(name string) *int {
	return f.Int(name).Value
}

// Bool returns nil when the key is absent or null.
func (f *fieldReader) Bool(name string) *bool {
	v, present, null := f.raw(name)
	if !present || null {
		return nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		f.errs.Add(name, "must be true or false")
		return nil
	}
	return &b
}

// Time parses an RFC 3339 timestamp.
func (f *fieldReader) Time(name string) service.Optional[time.Time] {
	s := f.String(name)
	if s == nil {
		return service.Optional[time.Time]{}
	}
	if strings.TrimSpace(*s) == "" {
		return service.Null[time.Time]()
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*s))
	if err != nil {
		f.errs.Add(name, "is not a valid timestamp")
		return service.Optional[time.Time]{}
	}
	return service.Some(t.UTC())
}

// Date parses a calendar date in domain.DateLayout.
func (f *fieldReader) Date(name string) service.Optional[time.Time] {
	s := f.String(name)
	if s == nil {
		return service.Optional[time.Time]{}
	}
	if strings.TrimSpace(*s) == "" {
		return service.Null[time.Time]()
	}
	t, err := domain.ParseDate(*s)
	if err != nil {
		f.errs.Add(name, "is not a valid date")
		return service.Optional[time.Time]{}
	}
	return service.Some(t)
}

// Level reads an optional difficulty or risk grade. Unknown values are passed
// through for the domain validator to reject.
func (f *fieldReader) Level(name string) service.Optional[domain.Level] {
	s := f.String(name)
	if s == nil {
		return service.Optional[domain.Level]{}
	}
	if *s == "" {
		return service.Null[domain.Level]()
	}
	return service.Some(domain.Level(*s))
}

// Strings reads an array of strings.
func (f *fieldReader) Strings(name string) []string {
	v, present, null := f.raw(name)
	if !present {
		return nil
	}
	out := []string{}
	if null {
		return out
	}
	if err := json.Unmarshal(v, &out); err != nil {
		f.errs.Add(name, "must be a list of strings")
		return nil
	}
	return out
}

// Object reads a free-form JSON object.
func (f *fieldReader) Object(name string) map[string]any {
	v, present, null := f.raw(name)
	if !present {
		return nil
	}
	out := map[string]any{}
	if null {
		return out
	}
	if err := json.Unmarshal(v, &out); err != nil {
		f.errs.Add(name, "must be an object")
		return nil
	}
	return out
}

// BoolMap reads an object of boolean flags.
func (f *fieldReader) BoolMap(name string) map[string]bool {
	v, present, null := f.raw(name)
	if !present {
		return nil
	}
	out := map[string]bool{}
	if null {
		return out
	}
	if err := json.Unmarshal(v, &out); err != nil {
		f.errs.Add(name, "must be an object of true/false flags")
		return nil
	}
	return out
}

// urlID parses a UUID path parameter. Malformed ids cannot name an existing
// row, so callers answer them with the resource's not-found error.
func urlID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
