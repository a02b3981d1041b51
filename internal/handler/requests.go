package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/daily-meme-quiz/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// maxBodyBytes bounds request bodies; every request here is a few fields
const maxBodyBytes = 4096

// DateRequest selects the puzzle date for round start and new run
type DateRequest struct {
	DateOverride string `json:"date_override" validate:"omitempty,datetime=2006-01-02"`
}

func (r *DateRequest) normalize() {
	r.DateOverride = strings.TrimSpace(r.DateOverride)
}

// AnswerRequest submits a selected option for a round
type AnswerRequest struct {
	RoundToken       string `json:"round_token" validate:"required,max=64"`
	SelectedOptionID string `json:"selected_option_id" validate:"required,max=256"`
}

// normalizer is implemented by requests that clean their fields before
// validation
type normalizer interface {
	normalize()
}

// decodeBody reads an optional JSON body into dst, normalizes and validates
// it. An empty body decodes to the zero value.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed body", domain.ErrInvalidRequest)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Tag() == "datetime" {
				return domain.ErrInvalidDate
			}
			return fmt.Errorf("%w: %s failed %s", domain.ErrInvalidRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}
