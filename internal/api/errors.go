package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/httputil"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var errNoRoute = apperr.New(apperr.NotFound, "", "route not found")

// errUnknownMode is reported with 422 instead of the usual 400.
var errUnknownMode = errors.New("unknown search mode")

var kindStatus = map[apperr.Kind]int{
	apperr.NotFound:        http.StatusNotFound,
	apperr.Conflict:        http.StatusConflict,
	apperr.Unauthorized:    http.StatusUnauthorized,
	apperr.BadInput:        http.StatusBadRequest,
	apperr.UpstreamFailure: http.StatusBadGateway,
	apperr.StorageFailure:  http.StatusInternalServerError,
}

// writeErr is the single place where error kinds become HTTP statuses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errUnknownMode) {
		httputil.WriteError(w, http.StatusUnprocessableEntity, "UNKNOWN_MODE", err.Error())
		return
	}

	kind := apperr.KindOf(err)
	status := kindStatus[kind]
	msg := apperr.Message(err)
	if kind == apperr.StorageFailure {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = "internal storage error"
	}
	httputil.WriteError(w, status, string(kind), msg)
}

// decode reads the JSON body into dst and runs struct validation on it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := httputil.ReadJSON(w, r, dst); err != nil {
		return apperr.New(apperr.BadInput, "", "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.New(apperr.BadInput, "", validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "eqfield":
			parts = append(parts, fmt.Sprintf("%s must match %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
