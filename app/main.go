package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/joho/godotenv"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/persistence"
	"github.com/Stromnimick/HQEinOne/app/records"
	"github.com/Stromnimick/HQEinOne/app/web"
)

var opts struct {
	DeletePolicy string `long:"delete-policy" env:"HQE_DELETE_POLICY" default:"reject" choice:"reject" choice:"cascade" description:"what happens to dependent records on delete"`
	Dbg          bool   `long:"dbg" env:"HQE_DEBUG" description:"debug mode"`

	DB struct {
		Dialect  string `long:"dialect" env:"DIALECT" default:"sqlite" choice:"sqlite" choice:"postgres" description:"database dialect"`
		Path     string `long:"path" env:"PATH" default:"hqeinone.db" description:"sqlite database file"`
		Host     string `long:"host" env:"HOST" description:"postgres host"`
		Port     int    `long:"port" env:"PORT" default:"5432" description:"postgres port"`
		User     string `long:"user" env:"USER" description:"postgres user"`
		Password string `long:"password" env:"PASSWORD" description:"postgres password"`
		Name     string `long:"name" env:"NAME" description:"postgres database name"`
		SSLMode  string `long:"sslmode" env:"SSLMODE" default:"disable" description:"postgres ssl mode"`
		MaxConns int    `long:"max-conns" env:"MAX_CONNS" default:"10" description:"max open connections"`

		Retry struct {
			Attempts int           `long:"attempts" env:"ATTEMPTS" default:"5" description:"how many times to try connecting"`
			Duration time.Duration `long:"duration" env:"DURATION" default:"1s" description:"initial delay between attempts"`
			Factor   float64       `long:"factor" env:"FACTOR" default:"2" description:"backoff factor"`
		} `group:"retry" namespace:"retry" env-namespace:"RETRY"`
	} `group:"db" namespace:"db" env-namespace:"DB"`

	Web struct {
		Address      string        `long:"address" env:"ADDRESS" default:":8080" description:"web server listen address"`
		BaseURL      string        `long:"base-url" env:"BASE_URL" description:"base URL path for reverse proxy (e.g., /hqe)"`
		PasswordHash string        `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash of the shared password, empty disables auth"`
		LoginTTL     time.Duration `long:"login-ttl" env:"LOGIN_TTL" default:"24h" description:"login session lifetime"`
		WriteRate    float64       `long:"write-rate" env:"WRITE_RATE" default:"10" description:"max JSON API writes per second and client"`
	} `group:"web" namespace:"web" env-namespace:"HQE_WEB"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"hqeinone.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to keep rotated files, 0 keeps all"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated files"`
	} `group:"log" namespace:"log" env-namespace:"HQE_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("hqeinone %s\n", revision)

	// .env is optional, real environment wins over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("failed to load .env: %v\n", err)
	}

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel) // handle SIGQUIT, SIGINT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// run connects the store and serves the web UI until ctx is canceled
func run(ctx context.Context) error {
	policy, err := enums.ParseDeletePolicy(opts.DeletePolicy)
	if err != nil {
		return fmt.Errorf("invalid delete policy: %w", err)
	}

	params := storeParams()
	// missing configuration is fatal, no point to retry
	if err := params.Validate(); err != nil {
		return err
	}

	store, err := connect(ctx, params)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}()

	svc := records.New(store, records.Options{DeletePolicy: policy})
	srv, err := web.New(web.Config{
		Records:      svc,
		BaseURL:      validateBaseURL(opts.Web.BaseURL),
		Version:      revision,
		PasswordHash: opts.Web.PasswordHash,
		LoginTTL:     opts.Web.LoginTTL,
		WriteRate:    opts.Web.WriteRate,
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] delete policy %s", policy)
	return srv.Run(ctx, opts.Web.Address)
}

func storeParams() persistence.Params {
	return persistence.Params{
		Dialect:  persistence.Dialect(opts.DB.Dialect),
		Path:     opts.DB.Path,
		Host:     opts.DB.Host,
		Port:     opts.DB.Port,
		User:     opts.DB.User,
		Password: opts.DB.Password,
		Name:     opts.DB.Name,
		SSLMode:  opts.DB.SSLMode,
		MaxConns: opts.DB.MaxConns,
	}
}

// connect opens the store, retrying with backoff while the database is unavailable
func connect(ctx context.Context, params persistence.Params) (*persistence.Store, error) {
	rptr := repeater.New(&strategy.Backoff{Repeats: opts.DB.Retry.Attempts, Duration: opts.DB.Retry.Duration,
		Factor: opts.DB.Retry.Factor, Jitter: true})

	var store *persistence.Store
	attempt := 0
	err := rptr.Do(ctx, func() error {
		attempt++
		s, err := persistence.New(ctx, params)
		if err != nil {
			log.Printf("[WARN] can't open %s store, attempt %d: %v", params.Dialect, attempt, err)
			return err
		}
		store = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	tables, err := store.Tables(ctx)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close store: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to inspect store: %w", err)
	}
	log.Printf("[INFO] %s store ready, tables: %s", params.Dialect, strings.Join(tables, ", "))
	return store, nil
}

// setupLogs configures lgr and returns the writer used for log output
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	logOpts := []log.Option{log.Msec, log.Out(out)}
	if opts.Dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	if opts.DB.Password != "" {
		logOpts = append(logOpts, log.Secret(opts.DB.Password))
	}
	log.Setup(logOpts...)
	return out
}

// validateBaseURL normalizes base URL, "/" and empty mean root
func validateBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "/") {
		baseURL = "/" + baseURL
	}
	return baseURL
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %s received, shutting down", sig)
			cancel() // terminate on SIGINT and SIGTERM
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
}
