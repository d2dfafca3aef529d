package api

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	notBlankTag  = "notblank"
	semestersTag = "semesters"
)

var (
	translator   ut.Translator
	setupOnce    sync.Once
	maxSemesters = 2
	semestersMu  sync.RWMutex
)

// setupValidator wires gin's validator with English messages, JSON field
// names and the custom rules. It is safe to call more than once.
func setupValidator(semesters int) {
	semestersMu.Lock()
	if semesters > 0 {
		maxSemesters = semesters
	}
	semestersMu.Unlock()

	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, translator)

		// Use JSON tag names for errors instead of Go struct names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})

		_ = v.RegisterValidation(notBlankTag, notBlank)
		_ = v.RegisterValidation(semestersTag, semesterRange)

		noop := func(ut.Translator) error { return nil }
		for _, tag := range []string{notBlankTag, semestersTag} {
			_ = v.RegisterTranslation(tag, translator, noop, translateCustom)
		}
	})
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case semestersTag:
		semestersMu.RLock()
		defer semestersMu.RUnlock()
		if maxSemesters == 1 {
			return "must be 1"
		}
		return "must be between 1 and " + strconv.Itoa(maxSemesters)
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func semesterRange(fl validator.FieldLevel) bool {
	semestersMu.RLock()
	defer semestersMu.RUnlock()
	n := fl.Field().Int()
	return n >= 1 && n <= int64(maxSemesters)
}

// fieldErrors maps every failed field to a readable message.
func fieldErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		if translator != nil {
			fields[name] = fe.Translate(translator)
		} else {
			fields[name] = fe.Error()
		}
	}
	return fields
}
