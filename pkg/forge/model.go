// Package forge is a read-only client for the Puppet Forge v3 API.
package forge

import "time"

// Owner is a Forge user that publishes modules.
type Owner struct {
	URI         string    `json:"uri"`
	Slug        string    `json:"slug"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	ModuleCount int       `json:"module_count"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Module is a named module and its latest release.
type Module struct {
	URI            string       `json:"uri"`
	Slug           string       `json:"slug"`
	Name           string       `json:"name"`
	Downloads      int          `json:"downloads"`
	Owner          OwnerRef     `json:"owner"`
	CurrentRelease *Release     `json:"current_release,omitempty"`
	Releases       []ReleaseRef `json:"releases,omitempty"`
	HomepageURL    string       `json:"homepage_url,omitempty"`
	IssuesURL      string       `json:"issues_url,omitempty"`
	DeprecatedAt   *time.Time   `json:"deprecated_at,omitempty"`
}

// Release is one published version of a module.
type Release struct {
	URI       string         `json:"uri"`
	Slug      string         `json:"slug"`
	Version   string         `json:"version"`
	Module    ModuleRef      `json:"module"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	FileURI   string         `json:"file_uri"`
	FileSize  int64          `json:"file_size"`
	FileMD5   string         `json:"file_md5,omitempty"`
	Downloads int            `json:"downloads"`
	Readme    string         `json:"readme,omitempty"`
	Changelog string         `json:"changelog,omitempty"`
	License   string         `json:"license,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
}

// OwnerRef is the abbreviated owner embedded in modules.
type OwnerRef struct {
	URI      string `json:"uri"`
	Slug     string `json:"slug"`
	Username string `json:"username"`
}

// ModuleRef is the abbreviated module embedded in releases.
type ModuleRef struct {
	URI   string   `json:"uri"`
	Slug  string   `json:"slug"`
	Name  string   `json:"name"`
	Owner OwnerRef `json:"owner"`
}

// ReleaseRef is the abbreviated release listed on a module.
type ReleaseRef struct {
	URI     string `json:"uri"`
	Slug    string `json:"slug"`
	Version string `json:"version"`
	FileURI string `json:"file_uri"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
	Next   string `json:"next,omitempty"`
}

type page[T any] struct {
	Pagination Pagination `json:"pagination"`
	Results    []T        `json:"results"`
}
