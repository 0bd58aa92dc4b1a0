package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// packageJSON mirrors the subset of an npm package.json used for metadata.
type packageJSON struct {
	Name     string          `json:"name"`
	Title    string          `json:"title"`
	Version  string          `json:"version"`
	Homepage string          `json:"homepage"`
	Author   json.RawMessage `json:"author"`
	License  string          `json:"license"`
	Licenses []struct {
		Type string `json:"type"`
	} `json:"licenses"`
}

// LoadProjectFile reads project metadata from a package.json file. The
// author may be a plain string or an object with a name field.
func LoadProjectFile(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("failed to read project file: %w", err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Project{}, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}

	p := Project{
		Name:     pkg.Name,
		Title:    pkg.Title,
		Version:  pkg.Version,
		Homepage: pkg.Homepage,
	}

	if len(pkg.Author) > 0 {
		var name string
		if err := json.Unmarshal(pkg.Author, &name); err == nil {
			p.Author = name
		} else {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(pkg.Author, &obj); err != nil {
				return Project{}, fmt.Errorf("invalid author in %s: %w", path, err)
			}
			p.Author = obj.Name
		}
	}

	for _, l := range pkg.Licenses {
		p.Licenses = append(p.Licenses, l.Type)
	}
	if len(p.Licenses) == 0 && pkg.License != "" {
		p.Licenses = []string{pkg.License}
	}
	return p, nil
}

// Merge overlays the non-empty fields of other onto p.
func (p Project) Merge(other Project) Project {
	if other.Name != "" {
		p.Name = other.Name
	}
	if other.Title != "" {
		p.Title = other.Title
	}
	if other.Version != "" {
		p.Version = other.Version
	}
	if other.Homepage != "" {
		p.Homepage = other.Homepage
	}
	if other.Author != "" {
		p.Author = other.Author
	}
	if len(other.Licenses) > 0 {
		p.Licenses = other.Licenses
	}
	return p
}
