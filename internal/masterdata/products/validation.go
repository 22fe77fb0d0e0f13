package products

import (
	"fmt"
	"strings"

	"github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

func (s *Service) validate(product Product) error {
	if strings.TrimSpace(product.SKU) == "" {
		return fmt.Errorf("%w: sku", shared.ErrRequiredField)
	}
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if product.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	}
	return nil
}
