package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is a policy fragment dropped into the packs directory to tighten
// the base policy for specific guards.
type Pack struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	PackVersion string                 `yaml:"version"`
	Author      string                 `yaml:"author"`
	Guards      map[string]GuardPolicy `yaml:"guards"`
}

// PackInfo is a summary of a pack for listing.
type PackInfo struct {
	Name        string
	Description string
	Version     string
	Author      string
	Enabled     bool
	Path        string
	GuardCount  int
	Err         error
}

// LoadPacks reads all .yaml files from packsDir in name order and merges
// them into a copy of base. Merging never loosens the base: for each guard
// the most restrictive setting wins. Files whose name starts with "_" are
// listed but not applied. A missing directory is not an error.
func LoadPacks(packsDir string, base *Policy) (*Policy, []PackInfo, error) {
	var infos []PackInfo

	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return nil, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := base.Clone()
	if result.Guards == nil {
		result.Guards = map[string]GuardPolicy{}
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(packsDir, entry.Name())

		baseName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		enabled := !strings.HasPrefix(baseName, "_")

		pack, err := loadPack(path)
		if err != nil {
			infos = append(infos, PackInfo{
				Name:    baseName,
				Enabled: enabled,
				Path:    path,
				Err:     err,
			})
			continue
		}

		info := PackInfo{
			Name:        pack.Name,
			Description: pack.Description,
			Version:     pack.PackVersion,
			Author:      pack.Author,
			Enabled:     enabled,
			Path:        path,
			GuardCount:  len(pack.Guards),
		}
		if info.Name == "" {
			info.Name = baseName
		}
		infos = append(infos, info)

		if !enabled {
			continue
		}

		mergePackInto(result, pack)
	}

	return result, infos, nil
}

func loadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse pack %s: %w", path, err)
	}

	return &pack, nil
}

func mergePackInto(target *Policy, pack *Pack) {
	for id, incoming := range pack.Guards {
		existing, ok := target.Guards[id]
		if !ok {
			target.Guards[id] = incoming
			continue
		}
		target.Guards[id] = stricter(existing, incoming)
	}
}

// stricter combines two entries field by field, keeping the more
// restrictive value of each.
func stricter(a, b GuardPolicy) GuardPolicy {
	out := a
	if !a.IsEnabled() && b.IsEnabled() {
		out.Enabled = nil
	}
	if actionSeverity(b.Action) > actionSeverity(a.Action) {
		out.Action = b.Action
	}
	if b.Mode == ModeFailFast {
		out.Mode = ModeFailFast
	} else if out.Mode == "" {
		out.Mode = b.Mode
	}
	// A lower threshold lets more detections through to the action.
	out.Threshold = min(a.Threshold, b.Threshold)
	return out
}

// actionSeverity orders actions by restrictiveness. An unset action counts
// as mask, the resolved default.
func actionSeverity(a Action) int {
	switch a {
	case ActionBlock:
		return 3
	case ActionMask, "":
		return 2
	case ActionWarn:
		return 1
	default:
		return 0
	}
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
