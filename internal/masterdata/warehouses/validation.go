package warehouses

import (
	"fmt"
	"strings"

	"github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

func (s *Service) validate(w Warehouse) error {
	if strings.TrimSpace(w.Code) == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return nil
}
