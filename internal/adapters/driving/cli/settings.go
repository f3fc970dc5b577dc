package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        `View and change settings stored in config.toml in the data directory.`,
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigShow,
}

var configListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List every setting with its effective value",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:         "get [key]",
	Short:       "Print one setting",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting. Lists are comma separated, durations use Go syntax.

Examples:
  docsearch config set rag.chunk_size 800
  docsearch config set llm.provider anthropic
  docsearch config set ingest.supported_formats .pdf,.txt,.md
  docsearch config set server.request_timeout 90s`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigSet,
}

var configEmbeddingCmd = &cobra.Command{
	Use:         "embedding",
	Short:       "Configure embedding provider",
	Long:        `Choose the embedding provider interactively and check that it responds.`,
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:         "llm",
	Short:       "Configure LLM provider",
	Long:        `Choose the language model provider interactively and check that it responds.`,
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigLLM,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[RAG]")
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.RAG.ChunkSize, settings.RAG.ChunkOverlap)
	cmd.Printf("  Top k: %d\n", settings.RAG.TopK)
	cmd.Printf("  Answer language: %s\n", settings.RAG.AnswerLanguage)
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Max file size: %d MB\n", settings.Ingest.MaxFileSizeMB)
	cmd.Printf("  Formats: %s\n", strings.Join(settings.Ingest.SupportedFormats, " "))
	cmd.Printf("  Source directory: %s\n", settings.Ingest.SourceDir)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr())
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docsearch config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	values := settingValues(settings)
	for _, key := range settingsService.Keys() {
		cmd.Printf("%s = %s\n", key, values[key])
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	value, ok := settingValues(settings)[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, args[0])
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s updated.\n", args[0])

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		kind:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		prefix:    "embedding",
		validate:  settingsService.ValidateEmbeddingConfig,
	})
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		prefix:    "llm",
		validate:  settingsService.ValidateLLMConfig,
	})
}

// providerPrompt describes one interactive provider selection.
type providerPrompt struct {
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	prefix    string
	validate  func() error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, p providerPrompt) error {
	cmd.Printf("Select %s Provider\n", p.kind)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(p.providers), 1)
	selected := p.providers[idx-1]

	defaultModel := p.models[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := settingsService.Set(p.prefix+".provider", selected.String()); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", p.kind, err)
	}
	if err := settingsService.Set(p.prefix+".model", model); err != nil {
		return fmt.Errorf("failed to configure %s model: %w", p.kind, err)
	}

	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey := readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey != "" {
			if err := settingsService.Set(p.prefix+".api_key", apiKey); err != nil {
				return fmt.Errorf("failed to store API key: %w", err)
			}
		}
	}

	cmd.Print("Validating configuration... ")
	if err := p.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", p.kind, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", p.kind, selected.Description(), model)
	return nil
}

// settingValues renders the effective value of every configuration key.
func settingValues(s *domain.Settings) map[string]string {
	list := func(v []string) string { return strings.Join(v, ",") }
	itoa := strconv.Itoa
	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

	return map[string]string{
		"rag.chunk_size":                itoa(s.RAG.ChunkSize),
		"rag.chunk_overlap":             itoa(s.RAG.ChunkOverlap),
		"rag.top_k":                     itoa(s.RAG.TopK),
		"rag.min_chunk_length":          itoa(s.RAG.MinChunkLength),
		"rag.excerpt_length":            itoa(s.RAG.ExcerptLength),
		"rag.require_vector_store":      strconv.FormatBool(s.RAG.RequireVectorStore),
		"rag.answer_language":           s.RAG.AnswerLanguage,
		"ingest.max_file_size_mb":       itoa(s.Ingest.MaxFileSizeMB),
		"ingest.supported_formats":      list(s.Ingest.SupportedFormats),
		"ingest.source_dir":             s.Ingest.SourceDir,
		"ingest.ocr_languages":          s.Ingest.OCRLanguages,
		"embedding.provider":            s.Embedding.Provider.String(),
		"embedding.model":               s.Embedding.Model,
		"embedding.base_url":            s.Embedding.BaseURL,
		"embedding.api_key":             displayKey(s.Embedding.APIKey),
		"llm.provider":                  s.LLM.Provider.String(),
		"llm.model":                     s.LLM.Model,
		"llm.base_url":                  s.LLM.BaseURL,
		"llm.api_key":                   displayKey(s.LLM.APIKey),
		"llm.temperature":               ftoa(s.LLM.Temperature),
		"llm.max_tokens":                itoa(s.LLM.MaxTokens),
		"intents.list_documents":        list(s.Intents.Patterns.ListDocuments),
		"intents.current_session":       list(s.Intents.Patterns.CurrentSession),
		"intents.permanent":             list(s.Intents.Patterns.Permanent),
		"intents.rules_file":            s.Intents.RulesFile,
		"server.host":                   s.Server.Host,
		"server.port":                   itoa(s.Server.Port),
		"server.request_timeout":        s.Server.RequestTimeout.String(),
		"ratelimit.requests_per_second": ftoa(s.RateLimit.RequestsPerSecond),
		"ratelimit.burst":               itoa(s.RateLimit.Burst),
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise falls back to reader.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
