package config

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"siiau-backend/internal/chrono"
	"siiau-backend/lib/catalog"
	"siiau-backend/lib/configutil"
	"siiau-backend/lib/markup"
	"siiau-backend/lib/restyutil"
	"siiau-backend/lib/scrapers/siiau"
	"siiau-backend/pkg/migrations"
	servicecatalog "siiau-backend/services/catalog"
	"siiau-backend/services/notify"
	"siiau-backend/services/subscriptions"
	"siiau-backend/services/subscriptions/db"
	"time"
	"unicode"
	"unicode/utf8"
)

const DefaultPort = 8000

type CatalogConfig struct {
	BaseUrl   string `json:"base_url"`
	Term      string `json:"term"`
	Center    string `json:"center"`
	Major     string `json:"major"`
	MaxRows   int    `json:"max_rows"`
	VerifyTLS bool   `json:"verify_tls"`
	Timeout   string `json:"timeout"`
	// Curriculum is a yaml or json5 file mapping group names to subject
	// codes, relative paths are resolved against the config file.
	Curriculum     string `json:"curriculum"`
	SubjectMarker  string `json:"subject_marker"`
	PermissiveText bool   `json:"permissive_text"`
	Interval       string `json:"interval"`
	RefreshTimeout string `json:"refresh_timeout"`
}

type SubscriptionsConfig struct {
	// Database is a sqlite path (may start with <dev_state>) or a libsql url.
	Database        string `json:"database"`
	Admin           string `json:"admin"`
	Cooldown        string `json:"cooldown"`
	CheckInterval   string `json:"check_interval"`
	SummaryInterval string `json:"summary_interval"`
	// Smtp is optional, messages are only logged without it.
	Smtp *notify.SmtpConfig `json:"smtp"`
	// Addresses maps user ids to email addresses.
	Addresses map[string]string `json:"addresses"`
}

type Config struct {
	Port          int                 `json:"port"`
	Catalog       CatalogConfig       `json:"catalog"`
	Subscriptions SubscriptionsConfig `json:"subscriptions"`

	dir string
}

// Read reads the config file at path (with its .local override).
func Read(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Subscriptions.Database == "" {
		cfg.Subscriptions.Database = "<dev_state>/subscriptions.db"
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

func duration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

// Request is the course offering query described by the config.
func (c CatalogConfig) Request() (siiau.FetchRequest, error) {
	if c.Term == "" || c.Center == "" || c.Major == "" {
		return siiau.FetchRequest{}, fmt.Errorf("catalog: term, center and major are required")
	}
	return siiau.FetchRequest{
		Term:    c.Term,
		Center:  c.Center,
		Major:   c.Major,
		MaxRows: c.MaxRows,
	}, nil
}

func (c CatalogConfig) Client(output restyutil.InstrumentOutput) (*siiau.Client, error) {
	timeout, err := duration("timeout", c.Timeout)
	if err != nil {
		return nil, err
	}
	return siiau.NewClient(siiau.ClientOptions{
		BaseUrl:   c.BaseUrl,
		Timeout:   timeout,
		VerifyTLS: c.VerifyTLS,
		Output:    output,
	}), nil
}

// LoadCurriculum reads the curriculum file, a config without one has no groups.
func (c Config) LoadCurriculum() (catalog.Curriculum, error) {
	path := c.Catalog.Curriculum
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	curriculum, err := configutil.ReadConfig[catalog.Curriculum](path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum %s: %w", path, err)
	}
	return curriculum, nil
}

func checkMarker(marker string) error {
	if marker == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(marker)
	if size != len(marker) || !unicode.IsLetter(r) {
		return fmt.Errorf("invalid subject_marker %q: must be a single letter", marker)
	}
	return nil
}

func (c Config) CatalogOptions(fetcher siiau.Fetcher) (servicecatalog.ServiceOptions, error) {
	if err := checkMarker(c.Catalog.SubjectMarker); err != nil {
		return servicecatalog.ServiceOptions{}, err
	}
	req, err := c.Catalog.Request()
	if err != nil {
		return servicecatalog.ServiceOptions{}, err
	}
	curriculum, err := c.LoadCurriculum()
	if err != nil {
		return servicecatalog.ServiceOptions{}, err
	}
	interval, err := duration("interval", c.Catalog.Interval)
	if err != nil {
		return servicecatalog.ServiceOptions{}, err
	}
	refreshTimeout, err := duration("refresh_timeout", c.Catalog.RefreshTimeout)
	if err != nil {
		return servicecatalog.ServiceOptions{}, err
	}

	opts := servicecatalog.ServiceOptions{
		Fetcher:        fetcher,
		Request:        req,
		Curriculum:     curriculum,
		SubjectMarker:  c.Catalog.SubjectMarker,
		Interval:       interval,
		RefreshTimeout: refreshTimeout,
	}
	if c.Catalog.PermissiveText {
		opts.TextFilter = markup.PermissiveTextFilter
	}
	return opts, nil
}

// OpenStore opens (and migrates) the subscriptions database.
func (c Config) OpenStore(clock chrono.TimeAPI) (subscriptions.Store, *sql.DB, error) {
	database, err := migrations.OpenAndMigrateDB(db.Schema, c.Subscriptions.Database)
	if err != nil {
		return subscriptions.Store{}, nil, err
	}
	return subscriptions.NewStore(database, clock), database, nil
}

// Notifier sends email when smtp is configured and logs messages otherwise.
func (c Config) Notifier() notify.Notifier {
	if c.Subscriptions.Smtp == nil || c.Subscriptions.Smtp.Server == "" {
		return notify.LogNotifier{}
	}
	return notify.NewEmailNotifier(*c.Subscriptions.Smtp, c.Subscriptions.Addresses)
}

func (c Config) MonitorOptions(
	store subscriptions.Store,
	source subscriptions.SnapshotSource,
	notifier notify.Notifier,
) (subscriptions.MonitorOptions, error) {
	cooldown, err := duration("cooldown", c.Subscriptions.Cooldown)
	if err != nil {
		return subscriptions.MonitorOptions{}, err
	}
	check, err := duration("check_interval", c.Subscriptions.CheckInterval)
	if err != nil {
		return subscriptions.MonitorOptions{}, err
	}
	summary, err := duration("summary_interval", c.Subscriptions.SummaryInterval)
	if err != nil {
		return subscriptions.MonitorOptions{}, err
	}
	return subscriptions.MonitorOptions{
		Store:           store,
		Catalog:         source,
		Notifier:        notifier,
		Cooldown:        cooldown,
		CheckInterval:   check,
		SummaryInterval: summary,
		Admin:           c.Subscriptions.Admin,
	}, nil
}
