package autoroute

import (
	"encoding"
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	timeType            = reflect.TypeFor[time.Time]()
	fileHeaderType      = reflect.TypeFor[*multipart.FileHeader]()
	fileHeadersType     = reflect.TypeFor[[]*multipart.FileHeader]()
)

// ErrMissing is wrapped by rejections of a required value that is absent.
var ErrMissing = errors.New("missing required value")

// isBindStruct reports whether t binds field by field rather than as a single
// value.
func isBindStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	return !reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func tagName(f reflect.StructField, key string) string {
	tag, ok := f.Tag.Lookup(key)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// bindStruct sets every field tagged with key from lookup. Pointer and slice
// fields are optional; other fields are required.
func bindStruct(rv reflect.Value, key string, lookup func(name string) ([]string, bool)) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := tagName(f, key)
		if name == "" || !f.IsExported() {
			continue
		}
		values, ok := lookup(name)
		if !ok {
			values = nil
		}
		if err := setValue(rv.Field(i), values); err != nil {
			return &RejectionError{Source: key, Field: name, Err: err}
		}
	}
	return nil
}

func bindForm(rv reflect.Value, form *multipart.Form) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := tagName(f, "form")
		if name == "" || !f.IsExported() {
			continue
		}
		fv := rv.Field(i)
		switch f.Type {
		case fileHeaderType:
			if files := form.File[name]; len(files) > 0 {
				fv.Set(reflect.ValueOf(files[0]))
			}
			continue
		case fileHeadersType:
			fv.Set(reflect.ValueOf(form.File[name]))
			continue
		}
		if err := setValue(fv, form.Value[name]); err != nil {
			return &RejectionError{Source: "form", Field: name, Err: err}
		}
	}
	return nil
}

// setValue converts values into fv. Absent values leave pointers and slices
// untouched and fail for scalars.
func setValue(fv reflect.Value, values []string) error {
	t := fv.Type()
	switch {
	case t.Kind() == reflect.Pointer:
		if len(values) == 0 {
			return nil
		}
		ptr := reflect.New(t.Elem())
		if err := convertString(ptr.Elem(), values[0]); err != nil {
			return err
		}
		fv.Set(ptr)
		return nil
	case t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8:
		if len(values) == 0 {
			return nil
		}
		out := reflect.MakeSlice(t, len(values), len(values))
		for i, s := range values {
			if err := convertString(out.Index(i), s); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil
	}
	if len(values) == 0 || (values[0] == "" && t.Kind() != reflect.String) {
		return ErrMissing
	}
	return convertString(fv, values[0])
}

// convertString parses s into the settable value v.
func convertString(v reflect.Value, s string) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
	}
	t := v.Type()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeFor[time.Duration]() {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			v.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", s)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		v.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid bool %q", s)
		}
		v.SetBool(b)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			v.SetBytes([]byte(s))
			return nil
		}
		fallthrough
	default:
		return fmt.Errorf("unsupported type %s", t)
	}
	return nil
}
