// Package catalog provides the read-only list of companies a persona can study.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/persona-coach/internal/domain"
)

// ErrNotFound is returned when a company ID is not in the catalog.
var ErrNotFound = errors.New("company not found")

// Catalog is an ordered, immutable set of companies.
type Catalog struct {
	companies []domain.Company
	byID      map[string]int
}

// New builds a catalog, rejecting empty or duplicate IDs.
func New(companies []domain.Company) (*Catalog, error) {
	c := &Catalog{
		companies: make([]domain.Company, 0, len(companies)),
		byID:      make(map[string]int, len(companies)),
	}
	for i, company := range companies {
		id := strings.TrimSpace(company.ID)
		if id == "" {
			return nil, fmt.Errorf("company at index %d has no id", i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate company id %q", id)
		}
		company.ID = id
		c.byID[id] = len(c.companies)
		c.companies = append(c.companies, company)
	}
	return c, nil
}

// Default returns the built-in sample catalog.
func Default() *Catalog {
	c, err := New(sampleCompanies)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid sample data: %v", err))
	}
	return c
}

// LoadFile reads a JSON array of companies from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var companies []domain.Company
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	return New(companies)
}

// All returns every company in catalog order.
func (c *Catalog) All() []domain.Company {
	return append([]domain.Company(nil), c.companies...)
}

// Find looks up a company by ID.
func (c *Catalog) Find(id string) (domain.Company, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Company{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.companies[idx], nil
}

// Categories lists distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, company := range c.companies {
		if !seen[company.Category] {
			seen[company.Category] = true
			out = append(out, company.Category)
		}
	}
	return out
}

// Search filters by a case-insensitive term over name, product and
// description, and by exact category. Empty filters match everything.
func (c *Catalog) Search(term, category string) []domain.Company {
	term = strings.ToLower(strings.TrimSpace(term))
	category = strings.TrimSpace(category)

	out := []domain.Company{}
	for _, company := range c.companies {
		if category != "" && company.Category != category {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(company.Name), term) &&
			!strings.Contains(strings.ToLower(company.Product), term) &&
			!strings.Contains(strings.ToLower(company.Description), term) {
			continue
		}
		out = append(out, company)
	}
	return out
}

var sampleCompanies = []domain.Company{
	{
		ID:          "1",
		Name:        "TechFlow",
		Product:     "Project Management Software",
		Description: "Advanced project management tool with AI-powered insights and team collaboration features.",
		Category:    "Software",
	},
	{
		ID:          "2",
		Name:        "CloudSync",
		Product:     "Cloud Storage Platform",
		Description: "Secure cloud storage with real-time synchronization and advanced sharing capabilities.",
		Category:    "Cloud",
	},
	{
		ID:          "3",
		Name:        "MobileFirst",
		Product:     "Mobile App Development Platform",
		Description: "No-code platform for creating professional mobile applications with drag-and-drop interface.",
		Category:    "Mobile",
	},
	{
		ID:          "4",
		Name:        "EcommPlus",
		Product:     "E-commerce Analytics Dashboard",
		Description: "Comprehensive analytics platform for online stores with sales tracking and customer insights.",
		Category:    "E-commerce",
	},
	{
		ID:          "5",
		Name:        "GameStudio",
		Product:     "Game Development Engine",
		Description: "Cross-platform game development engine with visual scripting and asset management.",
		Category:    "Gaming",
	},
}
