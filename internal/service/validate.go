package service

import (
	"errors"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateRequest runs struct tag validation. A failure on a field listed in
// messages reports that message; any other failure reports fallback.
func validateRequest(req any, fallback string, messages map[string]string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Field()+"."+verrs[0].Tag()]; ok {
			return domain.Wrap(domain.KindValidation, msg, err)
		}
		if msg, ok := messages[verrs[0].Field()]; ok {
			return domain.Wrap(domain.KindValidation, msg, err)
		}
	}
	return domain.Wrap(domain.KindValidation, fallback, err)
}
