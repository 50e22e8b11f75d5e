package domain

import (
	"errors"
	"strings"
)

var ErrMissingField = errors.New("missing required field")

func (c TypingCommand) Validate() error {
	if strings.TrimSpace(c.EntityID) == "" || strings.TrimSpace(c.EntityType) == "" {
		return ErrMissingField
	}
	return nil
}

func (c EditingCommand) Validate() error {
	if strings.TrimSpace(c.TestCaseID) == "" || strings.TrimSpace(c.Field) == "" {
		return ErrMissingField
	}
	return nil
}

func (c RunStartedCommand) Validate() error {
	if strings.TrimSpace(c.TestRunID) == "" {
		return ErrMissingField
	}
	_, err := ParseRoomID(string(c.ProjectID))
	return err
}
