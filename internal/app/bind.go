package app

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type validation struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validation
)

func validatorService() *validation {
	vOnce.Do(func() {
		enLoc := en.New()
		trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		// report query parameter names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("query"); tag != "" {
				return tag
			}
			return fld.Name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		vSvc = &validation{validate: v, translator: trans}
	})
	return vSvc
}

// listQuery is the paging part of COB listing queries.
type listQuery struct {
	Page    int `query:"page" validate:"min=0,max=100000"`
	PerPage int `query:"perPage" validate:"min=1,max=100"`
}

type issueQuery struct {
	listQuery
	State string `query:"state" validate:"omitempty,oneof=open closed"`
}

type patchQuery struct {
	listQuery
	State string `query:"state" validate:"omitempty,oneof=draft open archived merged"`
}

func parseListQuery(values url.Values) (listQuery, error) {
	q := listQuery{PerPage: 30}
	var err error
	if q.Page, err = intParam(values, "page", 0); err != nil {
		return listQuery{}, err
	}
	if q.PerPage, err = intParam(values, "perPage", q.PerPage); err != nil {
		return listQuery{}, err
	}
	return q, nil
}

func intParam(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainError(http.StatusBadRequest, key+" must be a number")
	}
	return n, nil
}

// validateQuery checks q against its struct tags and turns the first failure
// into a 400.
func validateQuery(q any) error {
	svc := validatorService()
	err := svc.validate.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return domainError(http.StatusBadRequest, verrs[0].Translate(svc.translator))
	}
	return domainError(http.StatusBadRequest, err.Error())
}
