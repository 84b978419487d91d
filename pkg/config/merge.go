package config

import "dario.cat/mergo"

// mergeQueue overlays user-provided queue settings onto the built-in
// defaults, field by field, leaving zero-valued user fields untouched.
func mergeQueue(base *QueueConfig, override *QueueConfig) (*QueueConfig, error) {
	merged := *base
	if override == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}

func mergeFetcher(base *FetcherConfig, override *FetcherConfig) (*FetcherConfig, error) {
	merged := *base
	if override == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, override, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, err
	}
	return &merged, nil
}

func mergeFilters(base *FilterConfig, override *FilterConfig) (*FilterConfig, error) {
	merged := *base
	if override == nil {
		return &merged, nil
	}
	// Pattern lists are appended rather than replaced: operators add
	// city-specific patterns without having to restate the built-in
	// defaults.
	if err := mergo.Merge(&merged, override, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, err
	}
	return &merged, nil
}
