package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, or from the
// nearest parent holding go.mod when none exist there.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root := moduleRoot(); root != "" {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Driver   string `env:"DB_DRIVER" envDefault:"pgx"` // pgx, sqlite or memory
	Name     string `env:"DB_NAME" envDefault:"senlib"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	// SQLitePath is used when Driver is sqlite.
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"senlib.db"`
}

func (d *DatabaseOptions) ConnectionString() string {
	if d.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", d.SQLitePath)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	LookupRPS int    `env:"RATE_LIMIT_LOOKUP_RPS" envDefault:"20"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.LookupRPS < 0 {
		return fmt.Errorf("rate limit LookupRPS must be non-negative, got %d", r.LookupRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

// LookupOptions configures the external vocabulary services.
type LookupOptions struct {
	OntologyURL  string        `env:"LOOKUP_ONTOLOGY_URL" envDefault:"https://ontology.api.hubmapconsortium.org"`
	EUtilsURL    string        `env:"LOOKUP_EUTILS_URL" envDefault:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	EUtilsAPIKey string        `env:"LOOKUP_EUTILS_API_KEY"`
	SciCrunchURL string        `env:"LOOKUP_SCICRUNCH_URL" envDefault:"https://scicrunch.org/resolver"`
	DataCiteURL  string        `env:"LOOKUP_DATACITE_URL" envDefault:"https://api.datacite.org"`
	EntityURL    string        `env:"LOOKUP_ENTITY_URL" envDefault:"https://entity.api.sennetconsortium.org"`
	EntityToken  string        `env:"LOOKUP_ENTITY_TOKEN"`
	FTUURL       string        `env:"LOOKUP_FTU_URL" envDefault:"https://apps.humanatlas.io/api/grlc/hra/2d-ftu-parts.csv"`
	FTUCacheTTL  time.Duration `env:"LOOKUP_FTU_CACHE_TTL" envDefault:"24h"`
	Retries      int           `env:"LOOKUP_RETRIES" envDefault:"5"`
	BackoffBase  time.Duration `env:"LOOKUP_BACKOFF_BASE" envDefault:"1s"`
	BackoffMax   time.Duration `env:"LOOKUP_BACKOFF_MAX" envDefault:"30s"`
	Timeout      time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"20s"`
}

func (l *LookupOptions) Validate() error {
	if l.Retries < 1 || l.Retries > 10 {
		return fmt.Errorf("LOOKUP_RETRIES must be between 1 and 10, got %d", l.Retries)
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be positive, got %s", l.Timeout)
	}
	return nil
}

// ArchiveOptions configures where saved submissions are mirrored.
type ArchiveOptions struct {
	Backend  string `env:"ARCHIVE_BACKEND" envDefault:"none"` // none, fs or s3
	Dir      string `env:"ARCHIVE_DIR" envDefault:"archive"`
	Bucket   string `env:"ARCHIVE_S3_BUCKET"`
	Region   string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	Endpoint string `env:"ARCHIVE_S3_ENDPOINT"`
	Prefix   string `env:"ARCHIVE_PREFIX" envDefault:"senotypes"`

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
	PathStyle       bool   `env:"ARCHIVE_S3_PATH_STYLE" envDefault:"false"`
}

func (a *ArchiveOptions) Validate() error {
	switch a.Backend {
	case "none", "fs":
	case "s3":
		if a.Bucket == "" {
			return fmt.Errorf("ARCHIVE_S3_BUCKET is required when ARCHIVE_BACKEND is 's3'")
		}
	default:
		return fmt.Errorf("invalid ARCHIVE_BACKEND=%q (expected none|fs|s3)", a.Backend)
	}
	return nil
}

// LinkOptions are the external detail pages the redirect routes resolve to.
type LinkOptions struct {
	HGNCURL      string `env:"LINK_HGNC_URL" envDefault:"https://www.genenames.org/data/gene-symbol-report/#!/hgnc_id/"`
	UniProtURL   string `env:"LINK_UNIPROTKB_URL" envDefault:"https://www.uniprot.org/uniprotkb/"`
	OBOURL       string `env:"LINK_OBO_URL" envDefault:"http://purl.obolibrary.org/obo/"`
	PubMedURL    string `env:"LINK_PUBMED_URL" envDefault:"https://pubmed.ncbi.nlm.nih.gov/"`
	SciCrunchURL string `env:"LINK_SCICRUNCH_URL" envDefault:"https://scicrunch.org/resolver/"`
	DOIURL       string `env:"LINK_DOI_URL" envDefault:"https://doi.org/"`
	PortalURL    string `env:"LINK_PORTAL_URL" envDefault:"https://data.sennetconsortium.org/dataset?uuid="`
	OrgansURL    string `env:"LINK_ORGANS_URL" envDefault:"https://data.sennetconsortium.org/organs"`
}

// AuthOptions names the headers set by the authenticating proxy.
type AuthOptions struct {
	EmailHeader     string `env:"AUTH_EMAIL_HEADER" envDefault:"X-Auth-Email"`
	FirstNameHeader string `env:"AUTH_FIRST_NAME_HEADER" envDefault:"X-Auth-First-Name"`
	LastNameHeader  string `env:"AUTH_LAST_NAME_HEADER" envDefault:"X-Auth-Last-Name"`
	TokenHeader     string `env:"AUTH_TOKEN_HEADER" envDefault:"X-Auth-Token"`
}

type Configuration struct {
	Database   DatabaseOptions
	Prometheus PrometheusOptions
	RateLimit  RateLimitOptions
	Lookup     LookupOptions
	Archive    ArchiveOptions
	Auth       AuthOptions
	Links      LinkOptions

	ValuesetPath     string        `env:"VALUESET_PATH" envDefault:""`
	ServerPort       int           `env:"PORT" envDefault:"3200"`
	SessionTTL       time.Duration `env:"EDITOR_SESSION_TTL" envDefault:"2h"`
	GoAppEnvironment string        `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string        `env:"-"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3200"`
	MaxUploadSize    int64         `env:"MAX_UPLOAD_SIZE" envDefault:"5242880"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string        `env:"LOG_PATH" envDefault:""`
	// Looked up on each request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Falls back to request.RemoteAddr when absent.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production {
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

// Load builds a configuration from the environment and the given env files.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Lookup.Validate(); err != nil {
		return fmt.Errorf("lookup configuration error: %w", err)
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive configuration error: %w", err)
	}

	if c.LogPath != "" {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validateDatabase() error {
	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch driver {
	case "pgx", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid DB_DRIVER=%q (expected pgx|sqlite|memory)", c.Database.Driver)
	}
	c.Database.Driver = driver
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
