package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string
		// SecretKey signs session cookies. Required outside debug mode.
		SecretKey string
		WorkDir   string
		// DataDir holds the JSON stores (announcements, banner, maintenance),
		// the events cache and the action log.
		DataDir string

		DefaultFromEmail mail.Address
		// OpsEmail receives upstream outage alerts when set.
		OpsEmail       string
		SendgridApiKey string
		RollbarToken   string

		Server   ServerConfig
		Intra    IntraConfig
		Statusd  StatusFeedConfig
		Clusters []ClusterLayout
		// StaffLogins grants the write capability to logins whose provider
		// profile is not of the staff kind.
		StaffLogins []string
	}

	ServerConfig struct {
		Addr            string
		DebugAddr       string
		BaseURL         string
		SessionLifetime time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	// IntraConfig points the identity gate and the events feed at the campus
	// intra API.
	IntraConfig struct {
		AuthorizeURL   string
		TokenURL       string
		APIBaseURL     string
		ClientID       string
		ClientSecret   string
		RedirectURI    string
		CampusID       int
		CursusID       int
		EventLookahead time.Duration
		Timeout        time.Duration
	}

	StatusFeedConfig struct {
		BaseURL string
		Timeout time.Duration
		// InsecureSkipVerify disables TLS verification on the feed client;
		// the campus feed serves a self-signed certificate.
		InsecureSkipVerify bool
		RefreshInterval    time.Duration
		StaleAfter         time.Duration
	}

	// ClusterLayout describes one cluster's floor plan. Machine hostnames
	// follow the campus convention <cluster>r<row>p<position>.
	ClusterLayout struct {
		Name      string
		Rows      int
		Positions int
	}
)

// MachineID returns the hostname of the machine at the given row and position.
func (cl ClusterLayout) MachineID(row, pos int) string {
	return fmt.Sprintf("%sr%dp%d", cl.Name, row, pos)
}

// MachineIDs expands the layout into the hostnames of every machine it holds,
// row by row.
func (cl ClusterLayout) MachineIDs() []string {
	ids := make([]string, 0, cl.Rows*cl.Positions)
	for r := 1; r <= cl.Rows; r++ {
		for p := 1; p <= cl.Positions; p++ {
			ids = append(ids, cl.MachineID(r, p))
		}
	}
	return ids
}

// ParseClusterLayouts parses a layout spec of the form "e3:6x12,e4:6x12".
func ParseClusterLayouts(spec string) ([]ClusterLayout, error) {
	var layouts []ClusterLayout
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		nameDims := strings.SplitN(part, ":", 2)
		if len(nameDims) != 2 {
			return nil, fmt.Errorf("cluster layout %q: want <name>:<rows>x<positions>", part)
		}
		dims := strings.SplitN(nameDims[1], "x", 2)
		if len(dims) != 2 {
			return nil, fmt.Errorf("cluster layout %q: want <name>:<rows>x<positions>", part)
		}
		rows, err := strconv.Atoi(dims[0])
		if err != nil {
			return nil, fmt.Errorf("cluster layout %q: %v", part, err)
		}
		positions, err := strconv.Atoi(dims[1])
		if err != nil {
			return nil, fmt.Errorf("cluster layout %q: %v", part, err)
		}
		if rows < 1 || positions < 1 {
			return nil, fmt.Errorf("cluster layout %q: dimensions must be positive", part)
		}
		layouts = append(layouts, ClusterLayout{
			Name:      strings.ToLower(nameDims[0]),
			Rows:      rows,
			Positions: positions,
		})
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("cluster layout spec %q: no clusters", spec)
	}
	return layouts, nil
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Campus Monitor")
	conf.SetDefault("secretKey", "")
	conf.SetDefault("build", "dev")
	conf.SetDefault("dataDir", "")
	conf.SetDefault("defaultFromEmail", "monitor@localhost")
	conf.SetDefault("opsEmail", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("serverDebugAddr", ":8001")
	conf.SetDefault("serverBaseURL", "http://localhost:8000")
	conf.SetDefault("sessionLifetime", 24*time.Hour)
	conf.SetDefault("shutdownTimeout", 20*time.Second)
	conf.SetDefault("disableReqLogs", false)

	conf.SetDefault("intraAuthorizeURL", "https://api.intra.42.fr/oauth/authorize")
	conf.SetDefault("intraTokenURL", "https://api.intra.42.fr/oauth/token")
	conf.SetDefault("intraAPIBaseURL", "https://api.intra.42.fr")
	conf.SetDefault("intraClientID", "")
	conf.SetDefault("intraClientSecret", "")
	conf.SetDefault("intraRedirectURI", "http://localhost:8000/oauth/callback")
	conf.SetDefault("intraCampusID", 30)
	conf.SetDefault("intraCursusID", 21)
	conf.SetDefault("eventLookahead", 7*24*time.Hour)
	conf.SetDefault("intraTimeout", 10*time.Second)

	conf.SetDefault("statusFeedBaseURL", "")
	conf.SetDefault("statusFeedTimeout", 5*time.Second)
	conf.SetDefault("statusFeedInsecure", false)
	conf.SetDefault("refreshInterval", time.Minute)
	conf.SetDefault("staleAfter", 5*time.Minute)

	conf.SetDefault("clusterLayouts", "e3:6x12,e4:6x12")
	conf.SetDefault("staffLogins", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	debug := conf.GetBool("debug")
	secretKey := conf.GetString("secretKey")
	if secretKey == "" {
		if !debug {
			log.Fatal("config: secretKey must be set outside debug mode")
		}
		secretKey = "dev-only-fdc9d62eb7abbd7b1337beefc0ffee42"
	}

	dataDir := conf.GetString("dataDir")
	if dataDir == "" {
		dataDir = filepath.Join(wd, "data")
	}

	layouts, err := ParseClusterLayouts(conf.GetString("clusterLayouts"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	c := &Config{
		Debug:            debug,
		TestMode:         testMode,
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        secretKey,
		WorkDir:          wd,
		DataDir:          dataDir,
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		OpsEmail:         conf.GetString("opsEmail"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Addr:            conf.GetString("serverAddr"),
			DebugAddr:       conf.GetString("serverDebugAddr"),
			BaseURL:         strings.TrimRight(conf.GetString("serverBaseURL"), "/"),
			SessionLifetime: conf.GetDuration("sessionLifetime"),
			ShutdownTimeout: conf.GetDuration("shutdownTimeout"),
			DisableReqLogs:  conf.GetBool("disableReqLogs"),
		},
		Intra: IntraConfig{
			AuthorizeURL:   conf.GetString("intraAuthorizeURL"),
			TokenURL:       conf.GetString("intraTokenURL"),
			APIBaseURL:     strings.TrimRight(conf.GetString("intraAPIBaseURL"), "/"),
			ClientID:       conf.GetString("intraClientID"),
			ClientSecret:   conf.GetString("intraClientSecret"),
			RedirectURI:    conf.GetString("intraRedirectURI"),
			CampusID:       conf.GetInt("intraCampusID"),
			CursusID:       conf.GetInt("intraCursusID"),
			EventLookahead: conf.GetDuration("eventLookahead"),
			Timeout:        conf.GetDuration("intraTimeout"),
		},
		Statusd: StatusFeedConfig{
			BaseURL:            strings.TrimRight(conf.GetString("statusFeedBaseURL"), "/"),
			Timeout:            conf.GetDuration("statusFeedTimeout"),
			InsecureSkipVerify: conf.GetBool("statusFeedInsecure"),
			RefreshInterval:    conf.GetDuration("refreshInterval"),
			StaleAfter:         conf.GetDuration("staleAfter"),
		},
		Clusters:    layouts,
		StaffLogins: SplitCommaList(conf.GetString("staffLogins")),
	}
	return c
}
