package buildapi

import "sort"

// Params are request parameters: the query string of a GET, the JSON body
// of anything else. Each call accepts a fixed set of keys.
type Params map[string]string

// validate rejects the first key (in sorted order) that is not allowed.
func (p Params) validate(allowed ...string) error {
	if len(p) == 0 {
		return nil
	}

	valid := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		valid[k] = struct{}{}
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := valid[k]; !ok {
			return invalidParamError(k)
		}
	}
	return nil
}
