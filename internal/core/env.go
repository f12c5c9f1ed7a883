package core

import (
	"sort"
	"strings"
)

// MergeEnv overlays each layer onto the ambient KEY=VALUE list.
// Later layers win on key collision.
func MergeEnv(ambient []string, layers ...map[string]string) map[string]string {
	out := make(map[string]string, len(ambient))
	for _, kv := range ambient {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// EnvList renders env as a sorted KEY=VALUE list for exec.Cmd.Env.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

// effectiveEnv is computed once per run.
func (p *Pipeline) effectiveEnv() map[string]string {
	return MergeEnv(p.ambient(), p.env, p.overrides)
}
