package fraud

import (
	"context"
	"fmt"

	"github.com/klesify/klesify-backend/internal/dataset"
	"github.com/klesify/klesify-backend/pkg/core"
)

// Directory looks up companies and their employees. Both lookups return
// core.ErrNotFound when nothing matches.
type Directory interface {
	FindCompany(ctx context.Context, name string) (*core.Company, error)
	FindEmployee(ctx context.Context, phone string) (*core.Employee, error)
}

// DatasetDirectory serves the company directory of a local dataset.
type DatasetDirectory struct {
	Data *dataset.Dataset
}

var _ Directory = DatasetDirectory{}

// FindCompany implements Directory.
func (d DatasetDirectory) FindCompany(_ context.Context, name string) (*core.Company, error) {
	if c, ok := d.Data.CompanyByName(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("company %q: %w", name, core.ErrNotFound)
}

// FindEmployee implements Directory.
func (d DatasetDirectory) FindEmployee(_ context.Context, phone string) (*core.Employee, error) {
	if e, _, ok := d.Data.EmployeeByPhone(phone); ok {
		return e, nil
	}
	return nil, fmt.Errorf("employee with phone %s: %w", phone, core.ErrNotFound)
}
