package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvFileVar names the variable that points at the .env file to load. When it
// is unset ".env" in the working directory is tried.
const EnvFileVar = "PIXSHARE_ENV_FILE"

// Client configures the pixshare CLI and anything else built on pkg/client.
type Client struct {
	APIBaseURL string `env:"PIXSHARE_API_URL" envDefault:"http://localhost:5000/api"`
	// MediaBaseURL serves /uploads. Empty means the API origin without /api.
	MediaBaseURL  string        `env:"PIXSHARE_MEDIA_URL"`
	Profile       string        `env:"PIXSHARE_PROFILE"`
	HTTPTimeout   time.Duration `env:"PIXSHARE_HTTP_TIMEOUT" envDefault:"0s"`
	WatchInterval time.Duration `env:"PIXSHARE_WATCH_INTERVAL" envDefault:"500ms"`
	LogLevel      string        `env:"PIXSHARE_LOG_LEVEL" envDefault:"info"`
}

// Stub configures the stub REST server.
type Stub struct {
	Addr           string        `env:"STUB_ADDR" envDefault:":5000"`
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL       time.Duration `env:"STUB_TOKEN_TTL" envDefault:"1h"`
	DBDriver       string        `env:"STUB_DB_DRIVER" envDefault:"sqlite3"`
	DSN            string        `env:"STUB_DB_DSN" envDefault:"file:pixshare-stub.db?_foreign_keys=on"`
	MongoURI       string        `env:"MONGO_URI"`
	MongoDB        string        `env:"MONGO_DB_NAME" envDefault:"pixshare"`
	RedisURL       string        `env:"REDIS_URL"`
	UploadDir      string        `env:"STUB_UPLOAD_DIR" envDefault:"./uploads"`
	StorageLimitGB float64       `env:"STUB_STORAGE_LIMIT_GB" envDefault:"10"`
	SeedFile       string        `env:"STUB_SEED_FILE"`
	Trace          string        `env:"STUB_TRACE"`
	LogLevel       string        `env:"STUB_LOG_LEVEL" envDefault:"info"`
}

// LoadEnvFile reads the .env file into the process environment. A missing
// default file is fine; a missing file named explicitly is not.
func LoadEnvFile() error {
	file, explicit := os.LookupEnv(EnvFileVar)
	if !explicit {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

func parse(target any) error {
	if err := LoadEnvFile(); err != nil {
		return err
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadClient() (*Client, error) {
	cfg := &Client{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile()
	}
	return cfg, nil
}

func LoadStub() (*Stub, error) {
	cfg := &Stub{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	switch cfg.DBDriver {
	case "sqlite3", "mysql":
	default:
		return nil, fmt.Errorf("STUB_DB_DRIVER %q is not supported", cfg.DBDriver)
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("STUB_TOKEN_TTL must be positive")
	}
	return cfg, nil
}

// DefaultProfile is the profile database under the user's config directory,
// falling back to the working directory.
func DefaultProfile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pixshare-profile.db"
	}
	return filepath.Join(dir, "pixshare", "profile.db")
}
