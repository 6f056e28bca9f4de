package config

// ResolveOptions controls Resolve.
type ResolveOptions struct {
	HierarchicalOptions

	// DotEnvDir holds an optional .env file loaded before the environment
	// is read. Empty skips it.
	DotEnvDir string

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// Resolve builds the effective configuration: defaults, then the config
// layers, then environment overrides. Command-line flags are applied by the
// caller on top, followed by Validate.
func Resolve(opts ResolveOptions) (*HierarchicalResult, error) {
	if opts.DotEnvDir != "" && opts.Environ == nil {
		if err := LoadDotEnv(opts.DotEnvDir); err != nil {
			return nil, err
		}
	}

	if !opts.NoInherit && opts.Environ == nil {
		opts.NoInherit = EnvNoInherit()
	}

	result, err := LoadHierarchical(opts.HierarchicalOptions)
	if err != nil {
		return nil, err
	}

	var overrides EnvOverrides
	if opts.Environ != nil {
		overrides, err = ParseEnvMap(opts.Environ)
	} else {
		overrides, err = ParseEnv()
	}
	if err != nil {
		return nil, err
	}
	overrides.Apply(result.Config)

	if errs := Validate(result.Config); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return result, nil
}
