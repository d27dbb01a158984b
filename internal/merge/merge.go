package merge

import (
	"github.com/wolfeidau/webpacker/internal/config"
)

// Merge combines fragment into base according to policy and returns a new configuration.
//
// Neither base nor fragment is modified and the result shares no mapping or sequence
// nodes with them. Fields without a policy entry are deep merged when both sides are
// mappings and overwritten otherwise.
func Merge(base, fragment config.Configuration, policy Policy) (config.Configuration, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return config.Configuration(mergeMappings("", base, fragment, policy)), nil
}

// All folds fragments into base from left to right.
func All(base config.Configuration, policy Policy, fragments ...config.Configuration) (config.Configuration, error) {
	out := base.Clone()
	for _, fragment := range fragments {
		var err error
		out, err = Merge(out, fragment, policy)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func mergeMappings(prefix string, base, fragment map[string]any, policy Policy) map[string]any {
	out := make(map[string]any, len(base)+len(fragment))
	for k, v := range base {
		out[k] = config.CloneNode(v)
	}

	for k, v := range fragment {
		path := join(prefix, k)
		existing, ok := base[k]
		if !ok {
			out[k] = config.CloneNode(v)
			continue
		}
		out[k] = mergeValues(path, existing, v, policy)
	}
	return out
}

func mergeValues(path string, base, fragment any, policy Policy) any {
	strategy, ok := policy[path]
	if !ok {
		strategy = DeepMerge
	}

	switch strategy {
	case Append:
		return appendValues(path, base, fragment, policy)
	case Overwrite:
		return config.CloneNode(fragment)
	default:
		baseMap, baseIsMap := config.AsMapping(base)
		fragMap, fragIsMap := config.AsMapping(fragment)
		if baseIsMap && fragIsMap {
			return mergeMappings(path, baseMap, fragMap, policy)
		}
		return config.CloneNode(fragment)
	}
}

func appendValues(path string, base, fragment any, policy Policy) any {
	baseSeq, baseIsSeq := config.AsSequence(base)
	fragSeq, fragIsSeq := config.AsSequence(fragment)

	switch {
	case baseIsSeq && fragIsSeq:
		out := make([]any, 0, len(baseSeq)+len(fragSeq))
		for _, v := range baseSeq {
			out = append(out, config.CloneNode(v))
		}
		for _, v := range fragSeq {
			out = append(out, config.CloneNode(v))
		}
		return out
	case baseIsSeq:
		out := make([]any, 0, len(baseSeq)+1)
		for _, v := range baseSeq {
			out = append(out, config.CloneNode(v))
		}
		return append(out, config.CloneNode(fragment))
	}

	// appending one mapping to another adds its keys
	baseMap, baseIsMap := config.AsMapping(base)
	fragMap, fragIsMap := config.AsMapping(fragment)
	if baseIsMap && fragIsMap {
		return mergeMappings(path, baseMap, fragMap, policy)
	}

	out := []any{config.CloneNode(base)}
	if fragIsSeq {
		for _, v := range fragSeq {
			out = append(out, config.CloneNode(v))
		}
		return out
	}
	return append(out, config.CloneNode(fragment))
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
