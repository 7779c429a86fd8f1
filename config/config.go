package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting, read from CRCHECK_* environment variables (a
// .env file in the working directory is honoured).
type Config struct {
	StartDir     string `envconfig:"START_DIR"`
	CorpusMarker string `envconfig:"CORPUS_MARKER" default:"idp.data"`
	BiblioDir    string `envconfig:"BIBLIO_DIR" default:"biblio"`
	FolderStart  int    `envconfig:"FOLDER_START" default:"1"`
	FolderEnd    int    `envconfig:"FOLDER_END" default:"98"`
	// OutputFolder is the biblio subfolder new review records go to.
	OutputFolder string `envconfig:"OUTPUT_FOLDER" default:"98"`

	JournalTable string `envconfig:"JOURNAL_TABLE" default:"PN_Journal_IDs.csv"`
	UpdatesFile  string `envconfig:"UPDATES_FILE" default:"UpdatesForBP.txt"`
	ReportFile   string `envconfig:"REPORT_FILE" default:"reviewMatches.xlsx"`
	StateFile    string `envconfig:"STATE_FILE" default:"crcheck_state.yaml"`

	// Confirm is prompt, accept or reject.
	Confirm     string `envconfig:"CONFIRM" default:"prompt"`
	SyncMatched bool   `envconfig:"SYNC_MATCHED" default:"true"`

	LogMode string `envconfig:"LOG_MODE" default:"development"`
	LogDir  string `envconfig:"LOG_DIR" default:"UpdatingNewXMLs"`

	BiblioBaseURL string `envconfig:"BIBLIO_BASE_URL" default:"https://papyri.info/biblio/"`
	HTTPPort      string `envconfig:"HTTP_PORT" default:"8080"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("crcheck", &c)
	return &c, err
}
