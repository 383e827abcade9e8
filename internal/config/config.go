package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes int64 = 16 << 20

type Options struct {
	runAddr          string
	logLevel         string
	dataBaseDSN      string
	modelPath        string
	modelBlobURL     string
	modelBlobConnStr string
	rulesPath        string
	maxUploadBytes   int64
	corsOrigins      string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	// Load environment variables from the .env file
	LoadEnvFile()

	if err := o.Parse(flag.CommandLine, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

// Parse registers the options on fs, with environment values as defaults,
// and parses args into them.
func (o *Options) Parse(fs *flag.FlagSet, args []string) error {
	fs.StringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string")
	fs.StringVar(&o.modelPath, "m", getEnvOrDefault("MODEL_PATH", ""), "path to the model artifact")
	fs.StringVar(&o.modelBlobURL, "mb", getEnvOrDefault("MODEL_BLOB_URL", ""), "blob URL of the model artifact")
	fs.StringVar(&o.modelBlobConnStr, "mc", getEnvOrDefault("MODEL_BLOB_CONNECTION_STRING", ""), "storage connection string for the model blob")
	fs.StringVar(&o.rulesPath, "r", getEnvOrDefault("RULES_PATH", ""), "path to a YAML pipeline rules file")
	fs.Int64Var(&o.maxUploadBytes, "u", getEnvInt64OrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes), "maximum upload size in bytes")
	fs.StringVar(&o.corsOrigins, "o", getEnvOrDefault("CORS_ORIGINS", "*"), "comma separated allowed CORS origins")

	// parse the arguments passed to the server into registered variables
	return fs.Parse(args)
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) ModelPath() string {
	return o.modelPath
}

func (o *Options) ModelBlobURL() string {
	return o.modelBlobURL
}

func (o *Options) ModelBlobConnectionString() string {
	return o.modelBlobConnStr
}

func (o *Options) RulesPath() string {
	return o.rulesPath
}

func (o *Options) MaxUploadBytes() int64 {
	if o.maxUploadBytes <= 0 {
		return defaultMaxUploadBytes
	}
	return o.maxUploadBytes
}

// CORSOrigins returns the allowed origins with blanks removed.
func (o *Options) CORSOrigins() []string {
	var out []string
	for _, origin := range strings.Split(o.corsOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	v := getEnvOrDefault(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("Ignoring invalid %s=%q", key, v)
		return defaultValue
	}
	return n
}

// LoadEnvFile loads environment variables from a .env file in the working
// directory or two levels up.
func LoadEnvFile() {
	// Determine the path to the .env file relative to the current working directory
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	for _, envPath := range []string{filepath.Join(cwd, ".env"), filepath.Join(cwd, "..", "..", ".env")} {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf(".env file loaded from %s", envPath)
			return
		}
	}
	log.Printf("No .env file found, proceeding without it")
}
