package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// categoriesFile is the on-disk shape of the taxonomy file.
type categoriesFile struct {
	Categories []domain.Category `yaml:"categories"`
}

// LoadCategories reads the category taxonomy from a YAML file. An empty path
// returns the built-in default taxonomy. Category names must be unique and
// every category needs at least one keyword.
func LoadCategories(path string) ([]domain.Category, error) {
	if path == "" {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCategories: read %s: %w", path, err)
	}

	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadCategories: parse %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("LoadCategories: %s contains no categories", path)
	}

	seen := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("LoadCategories: category with empty name in %s", path)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("LoadCategories: duplicate category %q in %s", c.Name, path)
		}
		seen[c.Name] = true
		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("LoadCategories: category %q has no keywords", c.Name)
		}
	}

	return f.Categories, nil
}

// DefaultCategories returns the built-in taxonomy: 16 categories ordered so
// that more specific keyword sets are declared before generic ones (e.g.
// Food Delivery's "uber eats" before Transportation's "uber").
func DefaultCategories() []domain.Category {
	return []domain.Category{
		{Name: "Income", Icon: "💰", Keywords: []string{
			"payroll", "salary", "direct deposit", "paycheck", "dividend", "interest payment",
		}},
		{Name: "Food Delivery", Icon: "🛵", Keywords: []string{
			"uber eats", "doordash", "grubhub", "postmates", "deliveroo", "instacart",
		}},
		{Name: "Groceries", Icon: "🛒", Keywords: []string{
			"whole foods", "trader joe", "safeway", "kroger", "aldi", "costco", "grocery", "supermarket",
		}},
		{Name: "Dining", Icon: "🍽️", Keywords: []string{
			"starbucks", "chipotle", "mcdonald", "dunkin", "restaurant", "burger", "pizza", "taco", "sushi", "cafe", "diner",
		}},
		{Name: "Transportation", Icon: "🚗", Keywords: []string{
			"uber", "lyft", "shell", "chevron", "exxon", "parking", "transit", "metro", "toll", "gas station",
		}},
		{Name: "Travel", Icon: "✈️", Keywords: []string{
			"airlines", "airline", "delta air", "united air", "airbnb", "hotel", "marriott", "hilton", "expedia", "hertz",
		}},
		{Name: "Subscriptions", Icon: "🔁", Keywords: []string{
			"netflix", "spotify", "hulu", "disney plus", "youtube premium", "audible", "icloud", "subscription",
		}},
		{Name: "Shopping", Icon: "🛍️", Keywords: []string{
			"amazon", "target", "walmart", "best buy", "ebay", "etsy", "ikea", "nike",
		}},
		{Name: "Entertainment", Icon: "🎟️", Keywords: []string{
			"amc", "cinema", "movie", "steam games", "playstation", "nintendo", "ticketmaster", "concert",
		}},
		{Name: "Utilities", Icon: "💡", Keywords: []string{
			"comcast", "xfinity", "verizon", "t mobile", "electric", "water bill", "internet", "utility",
		}},
		{Name: "Housing", Icon: "🏠", Keywords: []string{
			"rent", "mortgage", "hoa", "landlord", "property management",
		}},
		{Name: "Health", Icon: "🩺", Keywords: []string{
			"cvs", "walgreens", "pharmacy", "doctor", "dental", "clinic", "hospital", "optometry",
		}},
		{Name: "Fitness", Icon: "🏋️", Keywords: []string{
			"planet fitness", "equinox", "peloton", "gym", "yoga", "crossfit",
		}},
		{Name: "Insurance", Icon: "🛡️", Keywords: []string{
			"geico", "allstate", "state farm", "progressive", "insurance",
		}},
		{Name: "Education", Icon: "🎓", Keywords: []string{
			"udemy", "coursera", "tuition", "bookstore", "university",
		}},
		{Name: "Transfers", Icon: "🔄", Keywords: []string{
			"venmo", "zelle", "paypal", "wire transfer", "atm withdrawal", "transfer",
		}},
	}
}
