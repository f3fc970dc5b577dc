package config

import "strings"

// EnvPrefix marks environment variables that override config.toml.
const EnvPrefix = "DOCSEARCH_"

// FromEnv maps PREFIX_SECTION_KEY=value entries of environ to
// "section.key" = value. DOCSEARCH_RAG_TOP_K=8 becomes rag.top_k = "8".
// Variables without a section, such as DOCSEARCH_HOME, are ignored.
func FromEnv(prefix string, environ []string) map[string]any {
	out := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key, ok := EnvKey(prefix, name)
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}

// EnvKey converts a variable name to its dotted key.
func EnvKey(prefix, name string) (string, bool) {
	rest := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || section == "" || field == "" {
		return "", false
	}
	return section + "." + field, true
}

// EnvName is the inverse of EnvKey.
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.Replace(key, ".", "_", 1))
}
