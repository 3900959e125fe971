package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"k8s.io/klog"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/config"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/etlrunner"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/filemanager"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/influxreporter"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/postgresutils"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/warehouse"
)

const configEnvVar = "FINANCE_ETL_CONFIG"

type Runner interface {
	Run(ctx context.Context) error
}

type etlTask struct {
	runner *etlrunner.Runner
}

func (t etlTask) Run(ctx context.Context) error {
	_, err := t.runner.Run(ctx)
	return err
}

type schemaTask struct {
	warehouse *warehouse.Warehouse
}

func (t schemaTask) Run(ctx context.Context) error {
	return t.warehouse.CreateTables(ctx)
}

func main() {
	klog.InitFlags(nil)

	singleRun := flag.Bool("single-run", false, "run the task once (disable cron)")
	configFile := flag.String("config", "./config.yml", "configuration file")
	secretsFile := flag.String("secrets", "./secrets.ejson", "ejson secrets file")
	help := flag.Bool("help", false, "show command help")

	flag.Parse()
	defer klog.Flush()

	if *help {
		printUsage()
		return
	}

	if flag.NArg() == 0 {
		fmt.Println("No task passed in")
		printUsage()
		os.Exit(1)
	}

	err := config.ReadConfig(configEnvVar, *configFile, *secretsFile)
	if err != nil {
		klog.Errorf("Failed to read config: %v", err)
		klog.Flush()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runTask(ctx, flag.Arg(0), *singleRun); err != nil {
		klog.Error(err)
		klog.Flush()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("personal finance csv to postgres etl")
	fmt.Println("finance-etl [options] task")
	fmt.Println("tasks: etl, schema")
	flag.PrintDefaults()
}

func runTask(ctx context.Context, task string, singleRun bool) error {
	switch task {
	case "etl":
	case "schema":
		if err := postgresutils.EnsureDatabase(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown task %q", task)
	}

	db, err := postgresutils.CreatePostgresClient(ctx)
	if err != nil {
		return err
	}
	wh := warehouse.New(db, config.CurrentWarehouseConfig().BatchSize)
	defer wh.Close()

	if task == "schema" {
		return schemaTask{warehouse: wh}.Run(ctx)
	}

	runner, cleanup, err := newETLRunner(wh)
	if err != nil {
		return err
	}
	defer cleanup()

	return schedule(ctx, etlTask{runner: runner}, singleRun, config.CurrentETLConfig().UpdateFrequency)
}

func newETLRunner(wh *warehouse.Warehouse) (*etlrunner.Runner, func(), error) {
	etlConfig := config.CurrentETLConfig()

	persistTimeout, err := etlConfig.PersistTimeoutDuration()
	if err != nil {
		return nil, nil, err
	}

	files := filemanager.New(etlConfig.RawDir, etlConfig.ArchiveDir, etlConfig.FilePattern)

	reporter, client, err := influxreporter.NewFromConfig()
	if err != nil {
		return nil, nil, err
	}
	if reporter == nil {
		return etlrunner.NewRunner(files, wh, nil, persistTimeout), func() {}, nil
	}

	return etlrunner.NewRunner(files, wh, reporter, persistTimeout), func() { client.Close() }, nil
}

// schedule runs the task once and then on frequency until ctx is done. Runs
// never overlap: a tick firing while a run is active is skipped, and shutdown
// waits for the active run to finish.
func schedule(ctx context.Context, runner Runner, singleRun bool, frequency string) error {
	var running sync.Mutex

	run := func() {
		if !running.TryLock() {
			klog.Warningf("Previous run still in progress, skipping this tick")
			return
		}
		defer running.Unlock()

		klog.Infof("Starting run at %s", time.Now().Format(time.RFC850))
		if err := runner.Run(ctx); err != nil {
			klog.Errorf("Run failed: %v", err)
		}
	}

	run()

	if singleRun {
		return nil
	}

	c := cron.New()
	if err := c.AddFunc(frequency, run); err != nil {
		return fmt.Errorf("invalid updateFrequency %q: %w", frequency, err)
	}

	klog.Infof("Scheduled runs with %q", frequency)
	c.Start()

	<-ctx.Done()
	klog.Infof("Shutting down")
	c.Stop()

	// cron.Stop does not wait for running jobs. Holding the lock keeps any
	// late tick from starting after this point.
	running.Lock()
	return nil
}
