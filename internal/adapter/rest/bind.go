package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

// badRequest is a client error whose message is safe to return as is.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

var (
	vOnce  sync.Once
	vValid *validator.Validate
	vTrans ut.Translator
)

// validate returns the shared validator, configured with english messages
// that name fields by their json tag.
func validate() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		vTrans, _ = uni.GetTranslator("en")

		vValid = validator.New(validator.WithRequiredStructEnabled())
		vValid.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(vValid, vTrans)
	})
	return vValid, vTrans
}

// decodeJSON reads one JSON object into T, rejecting unknown fields and
// trailing data, then runs struct validation.
func decodeJSON[T any](r *http.Request) (T, error) {
	var dst T
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, badRequestf("empty body")
		}
		return dst, badRequestf("invalid JSON: %v", err)
	}
	if dec.More() {
		return dst, badRequestf("unexpected trailing data")
	}

	v, trans := validate()
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dst, badRequestf("%s", verrs[0].Translate(trans))
		}
		return dst, badRequestf("validation error")
	}
	return dst, nil
}
