package config

import "github.com/mpolunin/eventwatch/app/scrape"

const (
	SourceTypeHTML = "html"
	SourceTypeRSS  = "rss"
)

// Source represents a complete scrape source configuration. Name is
// derived from the file name and is unique per sources directory.
type Source struct {
	Name      string           `yaml:"-"`
	Type      string           `yaml:"type"`
	URLs      []string         `yaml:"urls"`
	Selectors scrape.Selectors `yaml:"selectors"`
	Defaults  Defaults         `yaml:"defaults"`
	Settings  Settings         `yaml:"settings"`
}

// Defaults fill in candidate fields the source pages do not carry.
type Defaults struct {
	Category string `yaml:"category"`
	Address  string `yaml:"address"`
	Location string `yaml:"location"`
}

// Settings contains source processing settings
type Settings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	Timeout         int  `yaml:"timeout"`          // seconds
}
