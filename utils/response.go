package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": code, "message": message})
}

type validationError struct {
	ActualTag string `json:"tag"`
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Param     string `json:"param"`
}

// HandleValidationErrors turns a failed ReadJSON into a 400 with per-field
// details when the cause is validator errors, or a plain bad request
// otherwise.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		validationErrors := make([]validationError, 0, len(errs))
		for _, validationErr := range errs {
			validationErrors = append(validationErrors, validationError{
				ActualTag: validationErr.ActualTag(),
				Namespace: validationErr.Namespace(),
				Kind:      validationErr.Kind().String(),
				Type:      validationErr.Type().String(),
				Value:     fmtValue(validationErr.Value()),
				Param:     validationErr.Param(),
			})
		}

		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"error":  "validation",
			"fields": validationErrors,
		})
		return
	}

	ctx.StopWithStatus(iris.StatusBadRequest)
}

func fmtValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func CreateError(status int, title, message string, ctx iris.Context) {
	ctx.StopWithJSON(status, iris.Map{"error": title, "message": message})
}

func CreateInternalServerError(ctx iris.Context) {
	ctx.StopWithStatus(iris.StatusInternalServerError)
}

func CreateNotFound(ctx iris.Context) {
	ctx.StopWithStatus(iris.StatusNotFound)
}

func CreateEmailAlreadyRegistered(ctx iris.Context) {
	JSONError(ctx, iris.StatusConflict, "email_taken", "email already registered")
}
