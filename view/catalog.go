package view

import (
	"fmt"
	"os"

	"cs-portal/model"

	"gopkg.in/yaml.v3"
)

const defaultSentimentIcon = "😐"

// Catalog resolves classification labels and sentiments to their
// presentation. Disabled labels render without a badge.
type Catalog struct {
	labels     []model.LabelDefinition
	sentiments map[model.Sentiment]string
}

func NewCatalog(c model.LabelCatalog) *Catalog {
	enabled := make([]model.LabelDefinition, 0, len(c.Labels))
	for _, d := range c.Labels {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}
	sentiments := make(map[model.Sentiment]string, len(c.Sentiments))
	for k, v := range c.Sentiments {
		sentiments[k] = v
	}
	return &Catalog{labels: enabled, sentiments: sentiments}
}

// DefaultCatalog is used when no labels file is configured.
func DefaultCatalog() *Catalog {
	return NewCatalog(model.LabelCatalog{
		Labels: []model.LabelDefinition{
			{Name: "Technical Support", Badge: "technical-support", Enabled: true},
			{Name: "Product Feature Request", Badge: "feature-request", Enabled: true},
			{Name: "Sales Lead", Badge: "sales-lead", Enabled: true},
		},
		Sentiments: map[model.Sentiment]string{
			model.SentimentPositive: "😊",
			model.SentimentNegative: "😟",
			model.SentimentNeutral:  defaultSentimentIcon,
		},
	})
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label catalog: %w", err)
	}

	var c model.LabelCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse label catalog: %w", err)
	}
	return NewCatalog(c), nil
}

// Badge returns the badge class for a classification, falling back to a
// generic class for labels the catalog does not know.
func (c *Catalog) Badge(classification string) string {
	if d := c.find(classification); d != nil {
		return d.Badge
	}
	return "default"
}

func (c *Catalog) SentimentIcon(s model.Sentiment) string {
	if icon, ok := c.sentiments[s]; ok && icon != "" {
		return icon
	}
	return defaultSentimentIcon
}

// Len reports the number of enabled labels.
func (c *Catalog) Len() int {
	return len(c.labels)
}

func (c *Catalog) find(name string) *model.LabelDefinition {
	for i := range c.labels {
		if c.labels[i].Name == name {
			return &c.labels[i]
		}
	}
	return nil
}
