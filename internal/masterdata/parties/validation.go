package parties

import (
	"fmt"
	"strings"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

func normalize(p Party) Party {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = Type(strings.ToLower(strings.TrimSpace(string(p.Type))))
	p.ContactNumber = strings.TrimSpace(p.ContactNumber)
	p.Email = strings.TrimSpace(p.Email)
	p.City = strings.TrimSpace(p.City)
	p.State = strings.TrimSpace(p.State)
	return p
}

func (s *Service) validate(p Party) error {
	if p.Name == "" {
		return fmt.Errorf("party name: %w", shared.ErrRequiredField)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("party type %q: %w", p.Type, internalShared.ErrValidation)
	}
	return nil
}
