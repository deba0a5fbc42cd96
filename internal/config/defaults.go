package config

const (
	defaultStateDir           = "~/.local/share/coinenrich"
	defaultLogDir             = "~/.local/share/coinenrich/logs"
	defaultNumistaBaseURL     = "https://api.numista.com/v3"
	defaultNumistaLanguage    = "en"
	defaultNumistaUserAgent   = "coinenrich/1.0"
	defaultRequestDelayMS     = 250
	defaultMaxRetries         = 4
	defaultNumistaTimeout     = 30
	defaultBackend            = BackendSQLite
	defaultSQLiteFile         = "coins.db"
	defaultFirestoreBaseURL   = "https://firestore.googleapis.com/v1"
	defaultFirestoreDatabase  = "(default)"
	defaultCollection         = "coins"
	defaultRulersCollection   = "rulers"
	defaultProfile            = ProfileGeneral
	defaultBatchSize          = 200
	maxBatchSize              = 500
	defaultProgressEvery      = 25
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultConfigRelativePath = "~/.config/coinenrich/config.toml"
	projectConfigName         = "coinenrich.toml"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Scoring profiles.
const (
	ProfileGeneral = "general"
	ProfileRuler   = "ruler"
)

// Enrichment gates.
const (
	GateNameImages       = "name_images"
	GateImagesIdentifier = "images_identifier"
)

// SupportedLanguages lists the Numista response languages accepted by the CLI.
var SupportedLanguages = []string{"en", "es", "fr", "ru"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Numista: Numista{
			BaseURL:        defaultNumistaBaseURL,
			UserAgent:      defaultNumistaUserAgent,
			RequestDelayMS: defaultRequestDelayMS,
			MaxRetries:     defaultMaxRetries,
			TimeoutSeconds: defaultNumistaTimeout,
		},
		Store: Store{
			Backend:          defaultBackend,
			FirestoreBaseURL: defaultFirestoreBaseURL,
			DatabaseID:       defaultFirestoreDatabase,
			Collection:       defaultCollection,
			RulersCollection: defaultRulersCollection,
		},
		Enrichment: Enrichment{
			Profile:       defaultProfile,
			BatchSize:     defaultBatchSize,
			ProgressEvery: defaultProgressEvery,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
