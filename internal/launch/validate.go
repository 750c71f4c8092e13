/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package launch

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/go-playground/validator/v10"
)

const opValidate = "launch.validate"

var (
	inlineImage = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=\s]+$`)
	socialLink  = regexp.MustCompile(`^(https?://[^\s]+|@?[A-Za-z0-9_]{1,64})$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

func metadataValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("image_ref", func(fl validator.FieldLevel) bool {
			return isImageRef(fl.Field().String())
		})
		_ = v.RegisterValidation("social", func(fl validator.FieldLevel) bool {
			return socialLink.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Normalize trims surrounding whitespace from every text field
func Normalize(meta models.LaunchMetadata) models.LaunchMetadata {
	meta.Name = strings.TrimSpace(meta.Name)
	meta.TokenTicker = strings.TrimSpace(meta.TokenTicker)
	meta.Description = strings.TrimSpace(meta.Description)
	meta.Image = strings.TrimSpace(meta.Image)
	meta.Website = strings.TrimSpace(meta.Website)
	meta.Twitter = strings.TrimSpace(meta.Twitter)
	meta.Telegram = strings.TrimSpace(meta.Telegram)
	return meta
}

// Validate checks launch metadata and reports every failing field at once.
// The returned error is a txerrors validation error whose Fields use the
// JSON field names a form submits.
func Validate(meta models.LaunchMetadata) error {
	var fields []txerrors.FieldError

	err := metadataValidator().Struct(meta)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return txerrors.Wrap(txerrors.KindValidation, opValidate, "metadata could not be validated", err)
		}
		for _, fe := range verrs {
			fields = append(fields, txerrors.FieldError{Field: fe.Field(), Message: message(fe)})
		}
	}

	if meta.InitialBuy != nil && !meta.InitialBuy.IsPositive() {
		fields = append(fields, txerrors.FieldError{Field: "initialBuy", Message: "must be greater than zero"})
	}

	if len(fields) == 0 {
		return nil
	}
	return txerrors.Validation(opValidate, fields...)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "alphanum":
		return "must contain only letters and digits"
	case "image_ref":
		return "must be an http(s) URL or an inline base64 image"
	case "http_url":
		return "must be an http(s) URL"
	case "social":
		return "must be a URL or a handle"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func isImageRef(s string) bool {
	if strings.HasPrefix(s, "data:") {
		return inlineImage.MatchString(s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
