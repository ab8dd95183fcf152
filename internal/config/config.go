package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database
	DBDriver string `yaml:"dbDriver"`
	DBURL    string `yaml:"dbUrl"`
	DBDebug  bool   `yaml:"dbDebug"`

	// Logging
	LogMode     string `yaml:"logMode"`
	LogHashSalt string `yaml:"logHashSalt"`

	// Merge policy
	Policy        string   `yaml:"policy"`
	AllowCourses  []string `yaml:"allowCourses"`
	FamilyMarkers []string `yaml:"familyMarkers"`

	// Report
	ReportDir  string `yaml:"reportDir"`
	ReportName string `yaml:"reportName"`

	// SFTP
	SFTPHost                  string `yaml:"sftpHost"`
	SFTPPort                  int    `yaml:"sftpPort"`
	SFTPUser                  string `yaml:"sftpUser"`
	SFTPPass                  string `yaml:"sftpPass"`
	SFTPDir                   string `yaml:"sftpDir"`
	SFTPInsecureIgnoreHostKey bool   `yaml:"sftpInsecureIgnoreHostKey"`
	SFTPKnownHosts            string `yaml:"sftpKnownHosts"`

	// Google Cloud Storage
	GCSBucket string `yaml:"gcsBucket"`
	GCSPrefix string `yaml:"gcsPrefix"`

	// Webhook
	WebhookURL   string `yaml:"webhookUrl"`
	WebhookToken string `yaml:"webhookToken"`
}

// Load reads the environment and, when path is not empty, overlays the YAML
// file on top of it. Values present in the file win.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func FromEnv() Config {
	return Config{
		// Database
		DBDriver: getenv("DB_DRIVER", "postgres"),
		DBURL:    os.Getenv("DATABASE_URL"),
		DBDebug:  getenvBool("DB_DEBUG", false),

		// Logging
		LogMode:     getenv("LOG_MODE", "dev"),
		LogHashSalt: os.Getenv("LOG_HASH_SALT"),

		// Merge policy
		Policy:        getenv("MERGE_POLICY", "prompt"),
		AllowCourses:  getenvList("MERGE_ALLOW_COURSES", nil),
		FamilyMarkers: getenvList("DEDUPE_FAMILY_MARKERS", []string{"iabasico"}),

		// Report
		ReportDir:  getenv("REPORT_DIR", "reports"),
		ReportName: getenv("REPORT_NAME", "duplicate-courses"),

		// SFTP
		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", false),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),

		// Google Cloud Storage
		GCSBucket: os.Getenv("REPORT_GCS_BUCKET"),
		GCSPrefix: getenv("REPORT_GCS_PREFIX", "dedupe-reports"),

		// Webhook
		WebhookURL:   os.Getenv("REPORT_WEBHOOK_URL"),
		WebhookToken: os.Getenv("REPORT_WEBHOOK_TOKEN"),
	}
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if strings.TrimSpace(c.DBURL) == "" {
		errs = append(errs, errors.New("missing DATABASE_URL"))
	}
	if c.SFTPHost != "" && (c.SFTPUser == "" || c.SFTPPass == "") {
		errs = append(errs, errors.New("SFTP_HOST set without SFTP_USER / SFTP_PASS"))
	}
	if c.SFTPPort <= 0 || c.SFTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid SFTP_PORT %d", c.SFTPPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SFTPEnabled reports whether reports should be uploaded over SFTP.
func (c Config) SFTPEnabled() bool { return c.SFTPHost != "" }

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvList splits a comma separated variable, dropping blanks.
func getenvList(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
