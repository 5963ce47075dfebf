package content

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Targets are the two admin pages an environment exposes.
type Targets struct {
	UploadURL string `yaml:"upload_url" json:"upload_url"`
	AdminURL  string `yaml:"admin_url" json:"admin_url"`
}

type TargetTable map[Environment]Targets

func DefaultTargets() TargetTable {
	return TargetTable{
		Prod: {
			UploadURL: "https://nxtwave-assessments-backend-topin-prod-apis.ccbp.in/admin/nw_tasks/uploadfile/",
			AdminURL:  "https://nxtwave-assessments-backend-topin-prod-apis.ccbp.in/admin/nw_tasks/task/add/",
		},
		Beta: {
			UploadURL: "https://nxtwave-assessments-backend-topin-beta.earlywave.in/admin/nw_tasks/uploadfile/add/",
			AdminURL:  "https://nxtwave-assessments-backend-topin-beta.earlywave.in/admin/nw_tasks/task/add/",
		},
	}
}

func (t TargetTable) For(env Environment) (Targets, error) {
	tg, ok := t[env]
	if !ok {
		return Targets{}, fmt.Errorf("%w: %q", ErrUnknownEnvironment, env)
	}
	return tg, nil
}

type targetsFile struct {
	Environments map[string]Targets `yaml:"environments"`
}

// LoadTargets overlays the YAML file at path onto the default table. Empty
// fields in the file keep the default value.
func LoadTargets(path string) (TargetTable, error) {
	table := DefaultTargets()
	if path == "" {
		return table, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return overlayTargets(table, b)
}

func overlayTargets(table TargetTable, b []byte) (TargetTable, error) {
	var f targetsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse targets: %w", err)
	}
	for name, tg := range f.Environments {
		env, err := ParseEnvironment(name)
		if err != nil {
			return nil, err
		}
		cur := table[env]
		if u := strings.TrimSpace(tg.UploadURL); u != "" {
			cur.UploadURL = u
		}
		if u := strings.TrimSpace(tg.AdminURL); u != "" {
			cur.AdminURL = u
		}
		table[env] = cur
	}
	return table, nil
}

// MarshalYAML renders the table in the same shape LoadTargets reads.
func (t TargetTable) MarshalYAML() (interface{}, error) {
	out := targetsFile{Environments: map[string]Targets{}}
	for env, tg := range t {
		out.Environments[string(env)] = tg
	}
	return out, nil
}
