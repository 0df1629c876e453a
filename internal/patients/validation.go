package patients

import (
	"errors"
	"strings"
)

func (s *Service) validate(p Patient) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return errors.New("first name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return errors.New("last name is required")
	}
	return nil
}
