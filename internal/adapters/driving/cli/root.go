// Package cli provides the docsearch command line interface.
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services used by commands. Set by the bootstrap hook, or directly in tests.
var (
	answerService   driving.AnswerService
	documentService driving.DocumentService
	ingestService   driving.IngestService
	sessionService  driving.SessionService
	settingsService driving.SettingsService
	watchService    driving.WatchService
)

// Global flags.
var (
	verbose      bool
	dataDir      string
	inMemory     bool
	conversation string
)

// Command annotations controlling which services a command needs.
const (
	annotationServices = "docsearch/services"
	servicesNone       = "none"
	servicesSettings   = "settings"
)

// Options are the global flag values handed to the bootstrap hook.
type Options struct {
	// DataDir holds config.toml, the index database and prompts.
	DataDir string

	// InMemory keeps the index in memory instead of SQLite.
	InMemory bool

	// SettingsOnly skips building the index and the AI providers.
	SettingsOnly bool
}

// Services is the set of driving ports a bootstrap produces.
// Any of them may be nil; commands report the missing service.
type Services struct {
	Answer    driving.AnswerService
	Documents driving.DocumentService
	Ingest    driving.IngestService
	Sessions  driving.SessionService
	Settings  driving.SettingsService
	Watch     driving.WatchService

	// Close releases stores and providers. Optional.
	Close func()
}

// Bootstrap builds the services for one invocation.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap Bootstrap
	closer    func()
)

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Ask questions about your documents",
	Long: `docsearch indexes documents (PDF, Word, Excel, CSV, text, HTML, images)
and answers questions about them with a language model, citing the excerpts used.

Documents are either permanent or belong to an upload session. Questions are
scoped automatically: "the file I just uploaded" searches the current session,
"the permanent documents" searches the permanent corpus, anything else searches
everything.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&dataDir, "data-dir", defaultDataDir(), "Directory for config, index and prompts (env DOCSEARCH_HOME)")
	flags.BoolVar(&inMemory, "memory", false, "Keep the index in memory for this run")
	flags.StringVarP(&conversation, "conversation", "c", domain.DefaultConversation, "Conversation id for session and memory")
}

// SetBootstrap installs the function that builds services before a command runs.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// SetServices makes the given services available to commands.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	answerService = s.Answer
	documentService = s.Documents
	ingestService = s.Ingest
	sessionService = s.Sessions
	settingsService = s.Settings
	watchService = s.Watch
	closer = s.Close
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	need := cmd.Annotations[annotationServices]
	if bootstrap == nil || need == servicesNone {
		return nil
	}

	svcs, err := bootstrap(cmd.Context(), Options{
		DataDir:      dataDir,
		InMemory:     inMemory,
		SettingsOnly: need == servicesSettings,
	})
	if err != nil {
		return err
	}
	SetServices(svcs)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closer != nil {
		closer()
		closer = nil
	}
	return nil
}

func defaultDataDir() string {
	if dir := os.Getenv("DOCSEARCH_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsearch"
	}
	return filepath.Join(home, ".docsearch")
}
