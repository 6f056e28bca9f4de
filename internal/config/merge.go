package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base.
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - scalars: a value set in overlay replaces base
//   - args, extensions: a non-empty overlay list replaces base
//   - ignore: concatenate (base first, then overlay)
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := *base

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	if overlay.Subcommand != "" {
		result.Subcommand = overlay.Subcommand
	}
	if overlay.Log != "" {
		result.Log = overlay.Log
	}
	if overlay.StaleTime != 0 {
		result.StaleTime = overlay.StaleTime
	}
	if overlay.Jobs != 0 {
		result.Jobs = overlay.Jobs
	}
	if overlay.StateFile != "" {
		result.StateFile = overlay.StateFile
	}
	if overlay.MetricsFile != "" {
		result.MetricsFile = overlay.MetricsFile
	}
	if overlay.GlobalIgnore != nil {
		v := *overlay.GlobalIgnore
		result.GlobalIgnore = &v
	}
	if overlay.Watch.DebounceMS != 0 {
		result.Watch.DebounceMS = overlay.Watch.DebounceMS
	}

	result.Args = replaceList(base.Args, overlay.Args)
	result.Extensions = replaceList(base.Extensions, overlay.Extensions)

	result.Ignore = nil
	result.Ignore = append(result.Ignore, base.Ignore...)
	result.Ignore = append(result.Ignore, overlay.Ignore...)

	return &result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d; all config layers must agree on version", base, overlay)
	}
	return nil
}

func replaceList(base, overlay []string) []string {
	src := base
	if len(overlay) > 0 {
		src = overlay
	}
	if len(src) == 0 {
		return nil
	}
	return append([]string(nil), src...)
}
