// Package file keeps user-editable state in the data directory:
// config.toml through ConfigStore and the system prompts under prompts/
// through PromptStore.
package file
