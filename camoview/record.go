package camoview

import (
	"context"
)

// Record is a single catalog entry: a camouflage with its preview images and archive.
type Record struct {
	ID          int64    `yaml:"-"`
	Nickname    string   `yaml:"nickname"`
	VehicleName string   `yaml:"vehicle_name"`
	Description string   `yaml:"description"`
	FileSize    string   `yaml:"file_size"`
	PostDate    string   `yaml:"post_date"`
	Hashtags    []string `yaml:"hashtags"`
	Downloads   int      `yaml:"num_downloads"`
	Likes       int      `yaml:"num_likes"`
	ArchiveURL  string   `yaml:"zip_file_url"`
	ImageURLs   []string `yaml:"image_urls"`
}

type Catalog interface {
	Count(ctx context.Context) (int, error)
	RecordByIndex(ctx context.Context, index int) (rec Record, ok bool, err error)
	Search(ctx context.Context, query string, tags []string) ([]Record, error)
	Tags(ctx context.Context) ([]string, error)
	CustomTags(ctx context.Context) ([]string, error)
	AddCustomTags(ctx context.Context, values ...string) error
}
