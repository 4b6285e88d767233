package services

import (
	"chatlark/domain"
	"chatlark/errors"
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SendRequest struct {
	Content string `validate:"required"`
}

type CreateRoomRequest struct {
	Name string `validate:"required"`
	Type string `validate:"required,oneof=public private"`
}

// ValidateSend trims the content before checking it.
func ValidateSend(content string) (string, error) {
	req := SendRequest{Content: strings.TrimSpace(content)}
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEmptyContent, err)
	}
	return req.Content, nil
}

// ValidateCreateRoom returns the trimmed name and the parsed room type.
func ValidateCreateRoom(name string, roomType domain.RoomType) (string, domain.RoomType, error) {
	req := CreateRoomRequest{Name: strings.TrimSpace(name), Type: string(roomType)}
	if err := validate.Struct(req); err != nil {
		var fields validator.ValidationErrors
		if goerrors.As(err, &fields) {
			for _, f := range fields {
				if f.Field() == "Name" {
					return "", "", fmt.Errorf("%w: %v", errors.ErrEmptyRoomName, err)
				}
			}
		}
		return "", "", fmt.Errorf("%w: %v", errors.ErrInvalidRoomType, err)
	}
	return req.Name, domain.RoomType(req.Type), nil
}
