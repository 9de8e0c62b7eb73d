// Command pipelined is the process entrypoint, the generalization of the
// teacher's server.go from a bucket/artifact REST service to a single
// ingestion-submission route. Flags, config loading, sink/catalog
// construction, and Martini router wiring are kept in the same shape and
// order the teacher used.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/rs/zerolog"
	"gopkg.in/gorp.v1"

	"github.com/go-martini/martini"
	_ "github.com/lib/pq"
	"github.com/martini-contrib/render"

	"github.com/aodn/pipeline/api"
	"github.com/aodn/pipeline/checker"
	"github.com/aodn/pipeline/common"
	"github.com/aodn/pipeline/common/sentry"
	"github.com/aodn/pipeline/common/stats"
	"github.com/aodn/pipeline/config"
	"github.com/aodn/pipeline/database"
	"github.com/aodn/pipeline/handler"
	"github.com/aodn/pipeline/harvest"
	"github.com/aodn/pipeline/logging"
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/notify"
	"github.com/aodn/pipeline/publisher"
	"github.com/aodn/pipeline/registry"
	"github.com/aodn/pipeline/resolver"
	"github.com/aodn/pipeline/storage"
)

func HomeHandler(res http.ResponseWriter, req *http.Request) {
	res.Write([]byte("pipelined: a file ingestion pipeline runner"))
}

func VersionHandler(res http.ResponseWriter, req *http.Request) {
	res.Write([]byte(common.GetVersion()))
}

func main() {
	var flagConfigFile string
	flag.StringVar(&flagConfigFile, "config", "", "YAML config file describing sinks, catalog, and pluggable handlers")

	var flagCPUProfile string
	flag.StringVar(&flagCPUProfile, "cpuprofile", "", "File to write CPU profile into")

	flagVerbose := flag.Bool("verbose", false, "Enable request logging")
	showVersion := flag.Bool("version", false, "Show version number and quit")

	flag.Parse()

	if *showVersion {
		fmt.Println(common.GetVersion())
		return
	}

	conf, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatalf("Could not load config: %v\n", err)
	}

	logging.SetupLogger(conf.Logging.Level, conf.Logging.Format)
	logger := logging.GetLogger("pipelined")

	// ----- BEGIN CPU profiling -----
	if flagCPUProfile != "" {
		sig := make(chan os.Signal, 1)

		f, err := os.Create(flagCPUProfile)
		if err != nil {
			log.Fatal(err)
		}

		go func() {
			<-sig
			pprof.StopCPUProfile()
			os.Exit(0)
		}()

		pprof.StartCPUProfile(f)
		signal.Notify(sig, syscall.SIGHUP)
	}
	// ----- END CPU profiling -----

	// ----- BEGIN catalog DB connection -----
	sqlDB, err := sql.Open("postgres", conf.Global.CatalogDSN)
	if err != nil {
		log.Fatalf("Could not connect to the catalog database: %v\n", err)
	}

	dbmap := &gorp.DbMap{Db: sqlDB, Dialect: gorp.PostgresDialect{}}
	if *flagVerbose {
		dbmap.TraceOn("[gorp]", log.New(os.Stdout, "pipelined:", log.Lmicroseconds))
	}
	catalogStore := database.NewGorpCatalogStore(dbmap)
	// ----- END catalog DB connection -----

	// ----- BEGIN sink construction -----
	archiveBroker, err := storage.NewStorageBroker(conf.Global.ArchiveURI)
	if err != nil {
		log.Fatalf("Could not construct archive broker: %v\n", err)
	}
	storeBroker, err := storage.NewStorageBroker(conf.Global.UploadURI)
	if err != nil {
		log.Fatalf("Could not construct store broker: %v\n", err)
	}
	errorBroker, err := storage.NewStorageBroker(conf.Global.ErrorURI)
	if err != nil {
		log.Fatalf("Could not construct error broker: %v\n", err)
	}
	archiveBroker = storage.NewRetryingBroker(archiveBroker, 0)
	storeBroker = storage.NewRetryingBroker(storeBroker, 0)
	// ----- END sink construction -----

	// ----- BEGIN notifier construction -----
	notifier := &notify.MultiNotifier{
		Notifiers: []notify.Notifier{
			&notify.SMTPNotifier{
				Host: conf.Mail.SMTPHost,
				Port: fmt.Sprintf("%d", conf.Mail.SMTPPort),
				From: conf.Mail.From,
			},
		},
	}
	if conf.Global.NotifyWebhookURL != "" {
		notifier.Notifiers = append(notifier.Notifiers, &notify.HTTPNotifier{WebhookURL: conf.Global.NotifyWebhookURL})
	}
	// ----- END notifier construction -----

	handlers := registry.NewHandlerRegistry()
	pathFuncs := registry.NewPathFunctionRegistry()
	harvesters := registry.NewHarvesterRegistry()

	// Every conf.Pluggable.Handlers entry gets a handler and an SQL
	// harvester runner registered here. Path functions are only looked up
	// in pathFuncs by the entry's type key; this module registers none, so
	// without one a file keeps its default DestPath.
	registerHandlers(conf, handlers, pathFuncs, harvesters, catalogStore, archiveBroker, storeBroker, errorBroker, notifier, &logger)

	m := martini.New()
	m.Use(martini.Recovery())
	m.Use(render.Renderer())
	if *flagVerbose {
		m.Use(martini.Logger())
	}

	baseCtx := sentry.CreateAndInstallSentryClient(context.Background(), conf.Global.Env, conf.Global.SentryDSN)

	m.Map(&logger)
	m.Map(handlers)
	m.Map(conf.Global.ScratchDir)
	m.MapTo(baseCtx, (*context.Context)(nil))

	r := martini.NewRouter()
	// '/' url is used to determine if the server is up. Do not remove.
	r.Get("/", HomeHandler)
	r.Get("/version", VersionHandler)
	r.Get("/debug/vars", stats.Handler)
	r.Post("/submit", api.HandleSubmit)
	m.Action(r.Handle)

	m.Run()
}

// registerHandlers wires every configured handler definition into
// handlers/pathFuncs/harvesters, the one piece of application-specific
// assembly cmd/pipelined performs beyond generic framework wiring.
func registerHandlers(
	conf config.Config,
	handlers *registry.HandlerRegistry,
	pathFuncs *registry.PathFunctionRegistry,
	harvesters *registry.HarvesterRegistry,
	catalogStore database.CatalogStore,
	archiveBroker, storeBroker, errorBroker storage.StorageBroker,
	notifier notify.Notifier,
	logger *zerolog.Logger,
) {
	for _, reg := range conf.Pluggable.Handlers {
		reg := reg // avoid loop-variable capture in the closures below

		runner := &harvest.SQLHarvesterRunner{HarvesterName: reg.Name, Table: reg.TypeKey, Store: catalogStore}
		harvesters.Register(reg.Name, func(map[string]string) (harvest.HarvesterRunner, error) {
			return runner, nil
		})

		h := &handler.Handler{
			Name:     reg.Name,
			Resolver: &resolver.Resolver{ScratchDir: conf.Global.ScratchDir},
			Checker:  &checker.Checker{},
			Publisher: &publisher.Publisher{
				ArchiveBroker: archiveBroker,
				StoreBroker:   storeBroker,
				Logger:        logger,
				Harvesters:    map[string]harvest.HarvesterRunner{reg.Name: runner},
				MatchHarvester: func(f *model.PipelineFile) string {
					return reg.Name
				},
			},
			ErrorBroker: errorBroker,
			Notifier:    notifier,
			PathFunc: func(f *model.PipelineFile) {
				if fn, ok := pathFuncs.Get(reg.TypeKey); ok {
					f.DestPath = fn(f)
				}
			},
		}
		handlers.Register(reg.Name, h)
	}
}
